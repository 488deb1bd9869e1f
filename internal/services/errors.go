package services

import (
	"errors"
	"fmt"

	"github.com/yungbote/biomarker-backend/internal/services/progress"
)

var (
	ErrInvalidFile            = errors.New("invalid file")
	ErrAlreadyProcessing      = errors.New("document is already being processed")
	ErrDocumentUploading      = errors.New("document upload has not finished")
	ErrDocumentNotCompleted   = errors.New("document has not finished processing")
	ErrScannedPDFNeedsSetup   = errors.New("scanned PDF detected: OCR for scanned documents needs additional setup")
	ErrOCRNotConfigured       = errors.New("image OCR is not configured")
	ErrNoTextExtracted        = errors.New("no text could be extracted from the document")
	ErrNoBiomarkersExtracted  = errors.New("no biomarkers could be extracted from the document")
	ErrNoReadings             = errors.New("document has no biomarker readings")
	ErrNoClassifiableReadings = errors.New("no readings could be matched to an optimal range")
	ErrEmptyCart              = errors.New("cart is empty")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrProductUnavailable     = errors.New("product is not available")
	ErrOrderNotPending        = errors.New("order is not awaiting payment")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrAnalysisIDTaken        = errors.New("analysis id is already in use")
)

// StageError wraps a pipeline failure with the phase it happened in.
type StageError struct {
	Stage progress.Phase
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage progress.Phase, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}
