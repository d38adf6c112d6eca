// Package metrics defines Prometheus metrics for form-relay, covering
// submission outcomes, upload rejections, captcha verdicts and mail delivery.
package metrics
