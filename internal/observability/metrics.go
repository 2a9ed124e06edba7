// Package observability provides metrics and tracing for the application.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UploadsAccepted counts image files accepted and written to disk.
	UploadsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkwell_uploads_accepted_total",
		Help: "Number of uploaded image files accepted and stored.",
	})

	// UploadsRejected counts uploads rejected during validation, by reason.
	UploadsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_uploads_rejected_total",
		Help: "Number of uploaded files rejected during validation.",
	}, []string{"reason"})

	// OrphanFilesCleaned counts files removed after a failed store write.
	OrphanFilesCleaned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkwell_orphan_files_cleaned_total",
		Help: "Number of just-written upload files removed after a failed persistence step.",
	})

	// AttachmentsDeleted counts backing files removed with their post or image row.
	AttachmentsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkwell_attachments_deleted_total",
		Help: "Number of attachment files deleted as part of post updates and deletions.",
	})

	// RedisErrors counts Redis command failures, by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_redis_errors_total",
		Help: "Number of Redis command errors.",
	}, []string{"command"})
)
