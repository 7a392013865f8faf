package ledger

import (
	"context"
	stderrs "errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	smerrors "github.com/Station-Manager/errors"
	"go.opentelemetry.io/otel/trace"
)

const badKey = "!BADKEY"

// field is one rendered key/value pair.
type field struct {
	key   string
	value string
}

// toString converts a pair value to text. Integers and floats use their
// canonical decimal form.
func toString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "<nil>"
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int8:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint8:
		return strconv.FormatUint(uint64(x), 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Duration:
		return x.String()
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case []byte:
		return string(x)
	case error:
		return x.Error()
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// pairsToFields turns alternating key, value arguments into fields. A key that
// is not a string, or a trailing value without a partner, is kept under
// !BADKEY so nothing the caller passed is silently lost.
func pairsToFields(kv []interface{}) []field {
	if len(kv) == 0 {
		return nil
	}
	out := make([]field, 0, (len(kv)+1)/2)
	for i := 0; i < len(kv); {
		key, ok := kv[i].(string)
		if !ok || i+1 >= len(kv) {
			out = append(out, field{key: badKey, value: toString(kv[i])})
			i++
			continue
		}
		out = append(out, field{key: key, value: toString(kv[i+1])})
		i += 2
	}
	return out
}

// mergeFields combines, in increasing precedence, the span identifiers of
// ctx, the goroutine's ContextStore and the call-site fields. Keys overridden
// by a higher layer are omitted from the lower one.
func mergeFields(ctx context.Context, callSite []field) []field {
	stored := ContextStoreFrom(ctx).fields()

	var span trace.SpanContext
	if ctx != nil {
		span = trace.SpanContextFromContext(ctx)
	}
	if len(stored) == 0 && !span.IsValid() {
		return callSite
	}

	seen := make(map[string]struct{}, len(callSite)+len(stored))
	for _, f := range callSite {
		seen[f.key] = struct{}{}
	}

	out := make([]field, 0, len(callSite)+len(stored)+2)
	if span.IsValid() {
		for _, f := range []field{
			{key: "trace_id", value: span.TraceID().String()},
			{key: "span_id", value: span.SpanID().String()},
		} {
			if _, dup := seen[f.key]; dup || containsKey(stored, f.key) {
				continue
			}
			out = append(out, f)
		}
	}
	for _, f := range stored {
		if _, dup := seen[f.key]; dup {
			continue
		}
		out = append(out, f)
	}
	return append(out, callSite...)
}

func containsKey(fields []field, key string) bool {
	for _, f := range fields {
		if f.key == key {
			return true
		}
	}
	return false
}

// renderMessage appends " key=value" for every field to msg.
func renderMessage(msg string, fields []field) string {
	if len(fields) == 0 {
		return msg
	}
	buf := linePool.Get().(*strings.Builder)
	buf.Reset()
	defer linePool.Put(buf)

	buf.WriteString(msg)
	for _, f := range fields {
		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(f.key)
		buf.WriteByte('=')
		buf.WriteString(f.value)
	}
	return buf.String()
}

// buildErrorChain walks an error's cause chain and returns:
//   - chain: outermost -> innermost error messages
//   - ops: operation identifiers for DetailedError links ("" if not available)
//   - root: the innermost error message
//   - rootOp: the innermost operation identifier if available
//
// DetailedError.Cause() is preferred, with stdlib errors.Unwrap as fallback.
// Depth is capped and repeated messages stop the walk.
func buildErrorChain(err error) (chain []string, ops []string, root string, rootOp string) {
	const maxDepth = 50
	visited := 0
	seen := map[string]bool{}

	for err != nil && visited < maxDepth {
		visited++

		if dErr, ok := smerrors.AsDetailedError(err); ok && dErr != nil {
			chain = append(chain, dErr.Error())
			ops = append(ops, string(dErr.Op()))
			err = dErr.Cause()
			continue
		}

		msg := err.Error()
		if seen[msg] {
			break
		}
		seen[msg] = true
		chain = append(chain, msg)
		ops = append(ops, "")
		err = stderrs.Unwrap(err)
	}

	if len(chain) > 0 {
		root = chain[len(chain)-1]
	}
	if len(ops) > 0 {
		rootOp = ops[len(ops)-1]
	}
	return
}

// joinChain returns a single string for the error chain separated by " -> ".
func joinChain(chain []string) string {
	if len(chain) == 0 {
		return ""
	}
	return strings.Join(chain, " -> ")
}

// valueOr returns def when v is the zero value of T.
func valueOr[T comparable](def, v T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
