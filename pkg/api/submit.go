package api

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/telekom/form-relay/pkg/apiresponses"
	"github.com/telekom/form-relay/pkg/captcha"
	"github.com/telekom/form-relay/pkg/config"
	"github.com/telekom/form-relay/pkg/mail"
	"github.com/telekom/form-relay/pkg/metrics"
	"github.com/telekom/form-relay/pkg/submission"
	"github.com/telekom/form-relay/pkg/system"
)

// bodyHeadroom is what the text fields and multipart framing may add on top of the file limit.
const bodyHeadroom = 4 << 20

const (
	outcomeSent            = "sent"
	outcomeUploadRejected  = "upload_rejected"
	outcomeCaptchaRejected = "captcha_rejected"
	outcomeCaptchaError    = "captcha_error"
	outcomeMailFailed      = "mail_failed"
)

// InvalidCaptchaMessage is the body error for a rejected captcha token.
const InvalidCaptchaMessage = "Invalid captcha"

// SubmitController handles POST /submit: intake, optional captcha, mail relay.
type SubmitController struct {
	log      *zap.SugaredLogger
	config   config.Config
	intake   *submission.Intake
	verifier captcha.Verifier
	sender   mail.Sender
}

// NewSubmitController wires the pipeline. verifier may be nil when captcha is disabled.
func NewSubmitController(log *zap.SugaredLogger,
	cfg config.Config,
	verifier captcha.Verifier,
	sender mail.Sender,
) *SubmitController {
	return &SubmitController{
		log:      log.Named("submit"),
		config:   cfg,
		intake:   submission.NewIntake(cfg.Upload),
		verifier: verifier,
		sender:   sender,
	}
}

func (SubmitController) BasePath() string {
	return ""
}

func (sc *SubmitController) Register(rg *gin.RouterGroup) error {
	rg.POST("/submit", sc.handleSubmit)
	return nil
}

func (SubmitController) Handlers() []gin.HandlerFunc {
	return nil
}

func (sc *SubmitController) handleSubmit(c *gin.Context) {
	start := time.Now()
	reqLog := system.GetReqLogger(c, sc.log)
	cid := system.GetCorrelationID(c)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, sc.intake.MaxBytes()+bodyHeadroom)
	sub, err := sc.intake.Parse(c.Request)
	if err != nil {
		sc.rejectUpload(c, reqLog, err)
		observe(outcomeUploadRejected, start)
		return
	}
	reqLog = system.EnrichReqLoggerWithSubmission(reqLog, sub.FieldNames(), sub.FileName())

	if sc.config.Captcha.Enabled {
		if sc.verifier == nil {
			apiresponses.RespondMisconfigured(c, config.Missing("HCAPTCHA_SECRET_KEY", "HCAPTCHA_VERIFY_API"), reqLog)
			observe(outcomeCaptchaError, start)
			return
		}
		token, _ := sub.Get(captcha.TokenField)
		verdict, err := sc.verifier.Verify(c.Request.Context(), token, c.ClientIP())
		if err != nil {
			apiresponses.RespondInternalError(c, "verify captcha", err, reqLog)
			observe(outcomeCaptchaError, start)
			return
		}
		if !verdict.Success {
			reqLog.Infow("Submission rejected by captcha", "errorCodes", verdict.ErrorCodes)
			apiresponses.RespondBadRequest(c, InvalidCaptchaMessage)
			observe(outcomeCaptchaRejected, start)
			return
		}
	}

	env := mail.BuildEnvelope(sub, sc.config.Mail, cid)
	if err := sc.sender.Send(c.Request.Context(), env); err != nil {
		if errors.Is(err, config.ErrMisconfigured) {
			apiresponses.RespondMisconfigured(c, err, reqLog)
		} else {
			reqLog.Warnw("Relay refused submission", "error", err)
			apiresponses.RespondInternalErrorSimple(c, err.Error())
		}
		observe(outcomeMailFailed, start)
		return
	}

	reqLog.Infow("Submission relayed", "messageID", env.MessageID,
		"relay", net.JoinHostPort(sc.sender.GetHost(), strconv.Itoa(sc.sender.GetPort())))
	apiresponses.RespondSuccess(c)
	observe(outcomeSent, start)
}

func (sc *SubmitController) rejectUpload(c *gin.Context, reqLog *zap.SugaredLogger, err error) {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.Is(err, submission.ErrFileTooLarge):
		metrics.UploadRejected.WithLabelValues("too_large").Inc()
		reqLog.Infow("Upload rejected", "reason", "too_large", "error", err)
		apiresponses.RespondPayloadTooLarge(c, "file too large")
	case errors.Is(err, submission.ErrRequestTooLarge), errors.As(err, &maxBytesErr):
		metrics.UploadRejected.WithLabelValues("request_too_large").Inc()
		reqLog.Infow("Upload rejected", "reason", "request_too_large", "error", err)
		apiresponses.RespondPayloadTooLarge(c, "request too large")
	case errors.Is(err, submission.ErrUnexpectedFile):
		metrics.UploadRejected.WithLabelValues("unexpected_file").Inc()
		reqLog.Infow("Upload rejected", "reason", "unexpected_file", "error", err, "expectedField", sc.intake.FieldKey())
		apiresponses.RespondBadRequest(c, err.Error())
	case errors.Is(err, submission.ErrFieldTooLarge):
		metrics.UploadRejected.WithLabelValues("field_too_large").Inc()
		reqLog.Infow("Upload rejected", "reason", "field_too_large", "error", err)
		apiresponses.RespondBadRequest(c, err.Error())
	default:
		metrics.UploadRejected.WithLabelValues("malformed").Inc()
		reqLog.Infow("Upload rejected", "reason", "malformed", "error", err)
		apiresponses.RespondBadRequest(c, "invalid multipart form")
	}
}

func observe(outcome string, start time.Time) {
	metrics.SubmissionsReceived.WithLabelValues(outcome).Inc()
	metrics.SubmissionDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}
