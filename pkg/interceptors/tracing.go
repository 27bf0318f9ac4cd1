package interceptors

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/smart-import/internal/domain/common"
	"github.com/FACorreiaa/smart-import/pkg/observability"
)

// NewTracing instruments requests with OpenTelemetry server spans.
func NewTracing(tracer trace.Tracer) Middleware {
	if tracer == nil {
		tracer = otel.Tracer("smart-import/interceptors")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path, trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()

			span.SetAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
				attribute.String("request.id", common.RequestIDFromContext(ctx)),
			)

			rec := observability.NewStatusRecorder(w)
			r = r.WithContext(ctx)
			next.ServeHTTP(rec, r)

			if r.Pattern != "" {
				span.SetName(r.Pattern)
			}
			span.SetAttributes(attribute.Int("http.response.status_code", rec.Status))
			if rec.Status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(rec.Status))
			} else {
				span.SetStatus(codes.Ok, "ok")
			}
		})
	}
}
