package dto

import (
	"errors"
	"strings"

	"github.com/iho/ledgerimport/internal/usecase"
)

// RunRequest is the form part of a batch upload once the files are on disk.
type RunRequest struct {
	Enterprise       string
	TransactionsPath string
	InvoicesPath     string
}

// Validate checks the required fields.
func (r *RunRequest) Validate() error {
	if strings.TrimSpace(r.Enterprise) == "" {
		return errors.New("enterprise is required")
	}
	if r.TransactionsPath == "" {
		return errors.New("transactions file is required")
	}
	return nil
}

// ToUseCaseInput converts to use case input.
func (r *RunRequest) ToUseCaseInput() usecase.RunInput {
	return usecase.RunInput{
		Enterprise:       strings.TrimSpace(r.Enterprise),
		TransactionsPath: r.TransactionsPath,
		InvoicesPath:     r.InvoicesPath,
	}
}
