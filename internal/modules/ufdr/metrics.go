package ufdr

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cognis_ufdr_uploads_total",
			Help: "UFDR upload attempts by outcome.",
		},
		[]string{"result"},
	)

	uploadedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cognis_ufdr_uploaded_bytes_total",
			Help: "Bytes accepted into UFDR storage.",
		},
	)
)

func uploadResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrDuplicateContent):
		return "duplicate"
	case errors.Is(err, ErrEmptyFile), errors.Is(err, ErrFileTooLarge), errors.Is(err, ErrCaseNotFound):
		return "rejected"
	default:
		return "error"
	}
}
