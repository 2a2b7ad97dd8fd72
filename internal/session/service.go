package session

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"idproof/pkg/domain"
	dErrors "idproof/pkg/domain-errors"
	"idproof/pkg/requestcontext"

	"idproof/internal/audit"
	"idproof/internal/extraction"
	"idproof/internal/platform/config"
	"idproof/internal/session/metrics"
	"idproof/internal/storage"
	"idproof/internal/verification"
)

// Media types accepted for document and live-capture uploads.
var allowedMediaTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"application/pdf": true,
}

// Extractor turns a document image into structured fields.
type Extractor interface {
	Extract(ctx context.Context, image []byte, mediaType string) (*extraction.Result, error)
}

// Verifier scores a live capture against the document image.
type Verifier interface {
	Verify(ctx context.Context, document []byte, documentMediaType string, liveCapture []byte, liveMediaType string) (*verification.Result, error)
}

// Decider fuses the four scores into the verified outcome.
type Decider interface {
	Decide(ocrConfidence, documentValidation, livenessScore, faceMatchScore int) bool
}

// TokenIssuer signs the attestation for a verified session.
type TokenIssuer interface {
	Issue(sessionID domain.SessionID, documentType domain.DocumentType, scores domain.ScoreBreakdown, issuedAt time.Time) (string, error)
}

// Auditor durably records a verification outcome.
type Auditor interface {
	Emit(ctx context.Context, record audit.Record) error
}

// Service orchestrates the verification pipeline. All mutations of one
// session serialize through a striped lock so racing requests observe
// committed state instead of clobbering each other; distinct sessions run
// fully in parallel.
type Service struct {
	store     Store
	objects   storage.Store
	extractor Extractor
	verifier  Verifier
	decider   Decider
	issuer    TokenIssuer
	auditor   Auditor

	classifierTimeout time.Duration
	maxUploadBytes    int64

	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer

	locks [64]sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics attaches pipeline metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService wires the pipeline. cfg supplies the classifier timeout and the
// upload size cap.
func NewService(
	store Store,
	objects storage.Store,
	extractor Extractor,
	verifier Verifier,
	decider Decider,
	issuer TokenIssuer,
	auditor Auditor,
	cfg *config.Config,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		store:             store,
		objects:           objects,
		extractor:         extractor,
		verifier:          verifier,
		decider:           decider,
		issuer:            issuer,
		auditor:           auditor,
		classifierTimeout: cfg.Classifier.Timeout,
		maxUploadBytes:    cfg.MaxUploadBytes,
		logger:            logger,
		tracer:            otel.Tracer("idproof/session"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// lockFor serializes mutations per session via lock striping. Stripe count
// is fixed so memory stays bounded regardless of session volume.
func (s *Service) lockFor(id domain.SessionID) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(id.String()))
	return &s.locks[h.Sum32()%uint32(len(s.locks))]
}

// Create starts a new verification session.
func (s *Service) Create(ctx context.Context) (*Session, error) {
	sess := New(requestcontext.Now(ctx))
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create session")
	}
	s.metrics.IncrementCreated()
	s.logger.InfoContext(ctx, "session created",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", sess.ID.String(),
	)
	return sess, nil
}

// Get returns a session by ID.
func (s *Service) Get(ctx context.Context, id domain.SessionID) (*Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "session not found")
	}
	return sess, nil
}

func (s *Service) validateUpload(data []byte, mediaType string) error {
	if len(data) == 0 {
		return dErrors.New(dErrors.CodeValidation, "upload is empty")
	}
	if s.maxUploadBytes > 0 && int64(len(data)) > s.maxUploadBytes {
		return dErrors.New(dErrors.CodeValidation, "upload exceeds size limit")
	}
	if !allowedMediaTypes[mediaType] {
		return dErrors.New(dErrors.CodeValidation, "unsupported media type "+mediaType)
	}
	return nil
}

// SubmitDocument stores the document, runs extraction, and advances the
// session to Extracted. Replaying the call with identical bytes returns the
// committed result; replaying with different bytes is a conflict. An
// extraction failure terminates the session.
func (s *Service) SubmitDocument(ctx context.Context, id domain.SessionID, data []byte, mediaType string) (*Session, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "session.SubmitDocument",
		trace.WithAttributes(attribute.String("session.id", id.String())))
	defer span.End()

	if err := s.validateUpload(data, mediaType); err != nil {
		return nil, err
	}

	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	digest := string(storage.ComputeRef(data))
	switch {
	case sess.State.AtOrPast(StateExtracted):
		if sess.DocumentDigest == digest {
			return sess, nil
		}
		return nil, replayConflictErr("document submission")
	case sess.State == StateDocumentSubmitted:
		// Committed but never extracted (a crash mid-request). An identical
		// replay resumes extraction; different bytes are a conflict.
		if sess.DocumentDigest != digest {
			return nil, replayConflictErr("document submission")
		}
	default:
		ref, err := s.objects.Put(ctx, data, mediaType)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store document")
		}
		if err := sess.ApplyDocument(ref, mediaType, digest); err != nil {
			return nil, err
		}
		if err := s.commit(ctx, sess); err != nil {
			return nil, err
		}
	}

	result, err := s.extract(ctx, data, mediaType)
	if err != nil {
		return nil, s.terminate(ctx, sess, err)
	}

	if err := sess.ApplyExtraction(result.DocumentType, result.Fields, result.Confidence, result.HasPhoto, result.PhotoLocation); err != nil {
		return nil, err
	}
	if err := s.commit(ctx, sess); err != nil {
		return nil, err
	}

	s.metrics.ObserveStageLatency("document", time.Since(start))
	s.logger.InfoContext(ctx, "document extracted",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", sess.ID.String(),
		"document_type", sess.DocumentType.String(),
		"ocr_confidence", result.Confidence,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return sess, nil
}

func (s *Service) extract(ctx context.Context, data []byte, mediaType string) (*extraction.Result, error) {
	ctx, span := s.tracer.Start(ctx, "session.extract")
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, s.classifierTimeout)
	defer cancel()

	start := time.Now()
	result, err := s.extractor.Extract(callCtx, data, mediaType)
	s.metrics.ObserveClassifierLatency("extract", time.Since(start))
	return result, err
}

// ConfirmFields overwrites the extracted fields with the user's confirmation
// exactly once. An identical replay succeeds with the committed state;
// diverging data on a completed confirmation is a conflict.
func (s *Service) ConfirmFields(ctx context.Context, id domain.SessionID, fields domain.ExtractedFields) (*Session, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "session.ConfirmFields",
		trace.WithAttributes(attribute.String("session.id", id.String())))
	defer span.End()

	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if sess.State.AtOrPast(StateFieldsConfirmed) {
		if sess.ExtractedFields.Equal(fields) {
			return sess, nil
		}
		return nil, replayConflictErr("field confirmation")
	}

	if err := sess.ApplyConfirmedFields(fields); err != nil {
		return nil, err
	}
	if err := s.commit(ctx, sess); err != nil {
		return nil, err
	}

	s.metrics.ObserveStageLatency("fields", time.Since(start))
	s.logger.InfoContext(ctx, "fields confirmed",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", sess.ID.String(),
	)
	return sess, nil
}

// SubmitLiveCapture stores the live photo, scores it against the document,
// fuses the decision, issues the attestation for a pass, and completes the
// session. The audit record is durably written before the token leaves this
// method.
func (s *Service) SubmitLiveCapture(ctx context.Context, id domain.SessionID, data []byte, mediaType string) (*Session, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "session.SubmitLiveCapture",
		trace.WithAttributes(attribute.String("session.id", id.String())))
	defer span.End()

	if err := s.validateUpload(data, mediaType); err != nil {
		return nil, err
	}

	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	digest := string(storage.ComputeRef(data))
	if sess.State.AtOrPast(StateLiveCaptureSubmitted) {
		if sess.LivePhotoDigest == digest {
			return sess, nil
		}
		return nil, replayConflictErr("live capture submission")
	}

	ref, err := s.objects.Put(ctx, data, mediaType)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store live capture")
	}
	if err := sess.ApplyLiveCapture(ref, mediaType, digest); err != nil {
		return nil, err
	}
	if err := s.commit(ctx, sess); err != nil {
		return nil, err
	}

	document, liveCapture, err := s.fetchImages(ctx, sess)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "fetch stored images")
	}

	result, err := s.verify(ctx, document, sess.DocumentMediaType, liveCapture, sess.LiveMediaType)
	if err != nil {
		s.recordFailure(ctx, sess, err)
		return nil, s.terminate(ctx, sess, err)
	}

	if err := sess.ApplyScores(result.DocumentValidation, result.LivenessScore, result.FaceMatchScore, result.Notes); err != nil {
		return nil, err
	}
	if err := s.commit(ctx, sess); err != nil {
		return nil, err
	}

	sess, err = s.completeScored(ctx, sess, result.Notes)
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveStageLatency("live_capture", time.Since(start))
	return sess, nil
}

// completeScored fuses the decision for a Scored session, issues the token
// on a pass, writes the audit record, and completes the session.
func (s *Service) completeScored(ctx context.Context, sess *Session, notes string) (*Session, error) {
	scores, ok := sess.Scores()
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "scored session missing scores")
	}

	verified := s.decider.Decide(scores.OCRConfidence, scores.DocumentValidation, scores.LivenessScore, scores.FaceMatchScore)
	now := requestcontext.Now(ctx)

	var tokenValue *string
	if verified {
		signed, err := s.issuer.Issue(sess.ID, sess.DocumentType, scores, now)
		if err != nil {
			// A verified session must never be reported verified without
			// its token; a signing failure is an error, not a downgrade.
			s.emitBestEffort(ctx, scoreRecord(sess, scores, true, nil, "token signing failed"))
			return nil, s.terminate(ctx, sess, err)
		}
		tokenValue = &signed
	}

	record := scoreRecord(sess, scores, verified, tokenValue, notes)
	if err := s.auditor.Emit(ctx, record); err != nil {
		auditErr := dErrors.Wrap(err, dErrors.CodeInternal, "write audit record")
		return nil, s.terminate(ctx, sess, auditErr)
	}

	if err := sess.Complete(verified, tokenValue, now); err != nil {
		return nil, err
	}
	if err := s.commit(ctx, sess); err != nil {
		return nil, err
	}

	outcome := "rejected"
	if verified {
		outcome = "verified"
	}
	s.metrics.IncrementOutcome(outcome)
	s.logger.InfoContext(ctx, "session completed",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", sess.ID.String(),
		"verified", verified,
		"device", requestcontext.Device(ctx),
	)
	return sess, nil
}

func (s *Service) verify(ctx context.Context, document []byte, documentMediaType string, liveCapture []byte, liveMediaType string) (*verification.Result, error) {
	ctx, span := s.tracer.Start(ctx, "session.verify")
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, s.classifierTimeout)
	defer cancel()

	start := time.Now()
	result, err := s.verifier.Verify(callCtx, document, documentMediaType, liveCapture, liveMediaType)
	s.metrics.ObserveClassifierLatency("verify", time.Since(start))
	return result, err
}

// fetchImages loads the document and live capture from object storage in
// parallel.
func (s *Service) fetchImages(ctx context.Context, sess *Session) (document, liveCapture []byte, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, _, err := s.objects.Get(gctx, sess.DocumentRef)
		if err != nil {
			return err
		}
		document = data
		return nil
	})
	g.Go(func() error {
		data, _, err := s.objects.Get(gctx, sess.LivePhotoRef)
		if err != nil {
			return err
		}
		liveCapture = data
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return document, liveCapture, nil
}

// Result returns the outcome of a completed session. In-flight sessions are
// an out-of-order call; failed sessions resurface their terminal error.
func (s *Service) Result(ctx context.Context, id domain.SessionID) (*Session, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch sess.State {
	case StateCompleted:
		return sess, nil
	case StateFailed:
		return nil, dErrors.New(sess.FailureCode, sess.FailureReason)
	default:
		return nil, transitionErr(sess.State, "read result")
	}
}

// terminate marks the session failed with the error's code, commits, and
// returns the original error for the handler to surface.
func (s *Service) terminate(ctx context.Context, sess *Session, cause error) error {
	code := dErrors.CodeOf(cause)
	if failErr := sess.Fail(code, failureReason(cause), requestcontext.Now(ctx)); failErr != nil {
		return cause
	}
	if err := s.commit(ctx, sess); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist terminal state",
			"session_id", sess.ID.String(),
			"error", err,
		)
	}
	s.metrics.IncrementOutcome("failed")
	s.logger.WarnContext(ctx, "session failed",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", sess.ID.String(),
		"code", string(code),
	)
	return cause
}

// recordFailure writes the partial audit trail for a session that failed
// after extraction produced an OCR confidence but before full scoring.
func (s *Service) recordFailure(ctx context.Context, sess *Session, cause error) {
	s.emitBestEffort(ctx, audit.Record{
		SessionID:     sess.ID,
		OCRConfidence: sess.OCRConfidence,
		Verified:      false,
		Reason:        failureReason(cause),
	})
}

// emitBestEffort writes a record on exceptional paths, logging rather than
// masking the primary error when the write fails.
func (s *Service) emitBestEffort(ctx context.Context, record audit.Record) {
	if err := s.auditor.Emit(ctx, record); err != nil {
		s.logger.ErrorContext(ctx, "failed to write audit record",
			"session_id", record.SessionID.String(),
			"error", err,
		)
	}
}

func (s *Service) commit(ctx context.Context, sess *Session) error {
	if err := s.store.Update(ctx, sess); err != nil {
		return dErrors.Wrap(err, dErrors.CodeConcurrentModification, "commit session")
	}
	return nil
}

// failureReason keeps classifier internals out of user-visible state while
// preserving the error kind for the audit trail.
func failureReason(err error) string {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeExtractionFailed, dErrors.CodeMalformedResponse:
		return "document could not be processed, submit a new document"
	case dErrors.CodeVerificationFailed:
		return "verification could not be completed, try again"
	case dErrors.CodeSignatureFailure:
		return "attestation could not be issued, try again"
	default:
		return "verification attempt failed, try again"
	}
}

func scoreRecord(sess *Session, scores domain.ScoreBreakdown, verified bool, token *string, notes string) audit.Record {
	return audit.Record{
		SessionID:          sess.ID,
		OCRConfidence:      &scores.OCRConfidence,
		DocumentValidation: &scores.DocumentValidation,
		LivenessScore:      &scores.LivenessScore,
		FaceMatchScore:     &scores.FaceMatchScore,
		Verified:           verified,
		Token:              token,
		Reason:             notes,
	}
}
