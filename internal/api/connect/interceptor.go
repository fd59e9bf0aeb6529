package connect

import (
	"context"
	"time"

	"connectrpc.com/connect"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/cuebox/internal/infra/metrics"
)

const (
	// OperatorHeader is the header naming the operator issuing a request.
	OperatorHeader = "X-Operator"
)

// NewLoggingInterceptor creates an interceptor that logs every unary call
// and counts it in metrics when m is not nil.
func NewLoggingInterceptor(m *metrics.Metrics) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure
			operator := req.Header().Get(OperatorHeader)
			if operator == "" {
				operator = "anonymous"
			}

			resp, err := next(ctx, req)

			code := "ok"
			if err != nil {
				code = connect.CodeOf(err).String()
				zlog.Warn().Msgf("rpc: %s operator=%s code=%s elapsed=%s: %v", procedure, operator, code, time.Since(start), err)
			} else {
				zlog.Debug().Msgf("rpc: %s operator=%s elapsed=%s", procedure, operator, time.Since(start))
			}
			if m != nil {
				m.IncRPCRequests(procedure, code)
			}
			return resp, err
		}
	}
}
