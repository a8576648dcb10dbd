package middleware

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/HollandReese/bulwark/internal/detection"
	"github.com/HollandReese/bulwark/internal/models"
	pkghttp "github.com/HollandReese/bulwark/pkg/http"
)

// BlockChecker is the fast-path block lookup consulted on every request
type BlockChecker interface {
	IsBlocked(ctx context.Context, address string) bool
}

// ThreatRecorder receives the gate's detections
type ThreatRecorder interface {
	RecordContentThreat(ctx context.Context, snapshot models.RequestSnapshot, threatType models.IntrusionType, severity models.Severity, signature string)
	EscalateRateAbuse(address string, snapshot models.RequestSnapshot, count int)
}

// Gate is the per-request entry point of the detection engine. Stages run
// in strict order and short-circuit on the first rejection:
// block check, then rate check, then content scan.
type Gate struct {
	blocks   BlockChecker
	rates    *detection.RateTracker
	scanner  *detection.SignatureAnalyzer
	detector ThreatRecorder
	logger   *slog.Logger
}

// NewGate creates the detection middleware
func NewGate(blocks BlockChecker, rates *detection.RateTracker, scanner *detection.SignatureAnalyzer, detector ThreatRecorder, logger *slog.Logger) *Gate {
	return &Gate{
		blocks:   blocks,
		rates:    rates,
		scanner:  scanner,
		detector: detector,
		logger:   logger,
	}
}

// Handler wires the gate into the middleware chain
func (g *Gate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Health checks bypass every stage
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		address := ClientAddress(r)

		// Stage 1: block check
		if g.blocks.IsBlocked(r.Context(), address) {
			pkghttp.WriteGateReject(w, http.StatusForbidden,
				pkghttp.CodeIPBlocked, "access denied", "")
			return
		}

		// Stage 2: rate check
		result := g.rates.RecordAndCheck(address, time.Now())
		if result.SeverelyExceeded {
			snapshot := g.snapshot(r, address)
			go g.detector.EscalateRateAbuse(address, snapshot, result.Count)
		}
		if result.Exceeded {
			pkghttp.WriteGateReject(w, http.StatusTooManyRequests,
				pkghttp.CodeRateLimitExceeded, "too many requests", "")
			return
		}

		// Stage 3: content scan
		if g.scanner.Exempt(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		snapshot, ok := g.snapshotWithBody(r, address)
		if !ok {
			// Unreadable body: skip the content check rather than crash,
			// but leave a trace for the operators
			g.logger.Warn("analyzer anomaly: unreadable request body, content scan skipped",
				slog.String("ip_address", address),
				slog.String("path", r.URL.Path))
			next.ServeHTTP(w, r)
			return
		}

		scan := g.scanner.Scan(snapshot)
		if scan.Threat {
			g.detector.RecordContentThreat(r.Context(), snapshot, scan.Type, scan.Severity, scan.Signature)

			if scan.Severity.IsRejectable() {
				pkghttp.WriteGateReject(w, http.StatusForbidden,
					pkghttp.CodeThreatDetected, "request rejected", string(scan.Type))
				return
			}
			// Medium/Low: log-and-continue
		}

		next.ServeHTTP(w, r)
	})
}

// snapshot captures the request without touching the body
func (g *Gate) snapshot(r *http.Request, address string) models.RequestSnapshot {
	return models.RequestSnapshot{
		SourceAddress: address,
		Method:        r.Method,
		Path:          r.URL.Path,
		RawQuery:      r.URL.RawQuery,
		UserAgent:     r.UserAgent(),
		Headers:       captureHeaders(r),
	}
}

// snapshotWithBody additionally reads the scannable body prefix and splices
// the unread remainder back onto the request stream
func (g *Gate) snapshotWithBody(r *http.Request, address string) (models.RequestSnapshot, bool) {
	snapshot := g.snapshot(r, address)

	if r.Body == nil || r.Body == http.NoBody {
		return snapshot, true
	}

	limit := g.scanner.MaxScanBytes()
	prefix := make([]byte, limit+1)
	n, err := io.ReadFull(r.Body, prefix)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return snapshot, false
	}
	prefix = prefix[:n]

	truncated := false
	if n > limit {
		truncated = true
		snapshot.Body = string(prefix[:limit])
	} else {
		snapshot.Body = string(prefix)
	}
	snapshot.BodyTruncated = truncated

	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(prefix), r.Body), r.Body}

	return snapshot, true
}

// captureHeaders keeps the subset of headers worth scanning and recording.
// Cookies and authorization material are deliberately excluded.
func captureHeaders(r *http.Request) map[string]string {
	keep := []string{"Referer", "Content-Type", "Accept", "Origin", "X-Forwarded-For"}
	headers := make(map[string]string, len(keep))
	for _, k := range keep {
		if v := r.Header.Get(k); v != "" {
			headers[k] = v
		}
	}
	return headers
}

// ClientAddress resolves the source address, honoring trusted proxy headers
// before falling back to the transport peer
func ClientAddress(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-Ip")); realIP != "" {
		return realIP
	}

	if ip, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr)); err == nil {
		return ip
	}
	return r.RemoteAddr
}
