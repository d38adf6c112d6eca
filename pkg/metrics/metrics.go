package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SubmissionsReceived counts POST /submit requests by final outcome
	// (sent, upload_rejected, captcha_rejected, captcha_error, mail_failed).
	SubmissionsReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "form_relay_submissions_total",
		Help: "Total number of form submissions grouped by outcome",
	}, []string{"outcome"})
	SubmissionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "form_relay_submission_duration_seconds",
		Help:    "Time spent handling a form submission, including captcha and mail round trips",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})

	UploadRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "form_relay_upload_rejected_total",
		Help: "Total number of submissions rejected during upload intake",
	}, []string{"reason"})

	// Captcha metrics
	CaptchaVerifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "form_relay_captcha_verifications_total",
		Help: "Total number of captcha verdicts by result (success, failure, error)",
	}, []string{"result"})

	// Mail metrics
	MailSendSuccess = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "form_relay_mail_send_success_total",
		Help: "Total number of successful mail sends",
	}, []string{"host"})
	MailSendFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "form_relay_mail_send_failure_total",
		Help: "Total number of failed mail sends",
	}, []string{"host"})
	MailAttachmentBytes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "form_relay_mail_attachment_bytes",
		Help:    "Size of attachments relayed with outgoing mail",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
	})
)

func init() {
	prometheus.MustRegister(SubmissionsReceived)
	prometheus.MustRegister(SubmissionDuration)
	prometheus.MustRegister(UploadRejected)
	prometheus.MustRegister(CaptchaVerifications)
	prometheus.MustRegister(MailSendSuccess)
	prometheus.MustRegister(MailSendFailure)
	prometheus.MustRegister(MailAttachmentBytes)
}

// MetricsHandler returns an http.Handler exposing Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
