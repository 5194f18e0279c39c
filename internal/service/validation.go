package service

import (
	"fmt"
	"math"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"loanapi/internal/storage"
)

// Limits bounds what a submission may carry.
type Limits struct {
	MaxFiles     int
	MaxFileBytes int64
	AllowedTypes []string
}

// Money columns are NUMERIC(14, 2).
const (
	moneyScale     = 2
	moneyLimit     = 1e12
	moneyLimitText = "1000000000000"
)

// allowedExtensions pairs each accepted content type with the file
// extensions that may carry it.
var allowedExtensions = map[string][]string{
	"application/pdf": {".pdf"},
	"image/jpeg":      {".jpg", ".jpeg"},
	"image/png":       {".png"},
}

type validSubmission struct {
	customerID  string
	loanAmount  float64
	loanPurpose string
	income      float64
	files       []storage.Upload
}

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func validate(req SubmissionRequest, lim Limits) (*validSubmission, error) {
	v := &validSubmission{
		customerID:  strings.TrimSpace(req.CustomerID),
		loanPurpose: strings.TrimSpace(req.LoanPurpose),
		files:       req.Files,
	}
	if v.customerID == "" || strings.TrimSpace(req.LoanAmount) == "" || v.loanPurpose == "" || strings.TrimSpace(req.Income) == "" {
		return nil, invalid("Missing required fields.")
	}

	var err error
	if v.loanAmount, err = parseAmount(req.LoanAmount); err != nil || v.loanAmount <= 0 {
		return nil, invalid("loanAmount must be a positive number.")
	}
	if !fitsMoney(v.loanAmount) {
		return nil, invalid("loanAmount must be below %s with at most %d decimal places.", moneyLimitText, moneyScale)
	}
	if v.income, err = parseAmount(req.Income); err != nil || v.income < 0 {
		return nil, invalid("income must be a non-negative number.")
	}
	if !fitsMoney(v.income) {
		return nil, invalid("income must be below %s with at most %d decimal places.", moneyLimitText, moneyScale)
	}

	if len(req.Files) > lim.MaxFiles {
		return nil, invalid("Too many files: at most %d documents are allowed.", lim.MaxFiles)
	}
	for _, f := range req.Files {
		if err := validateFile(f, lim); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func validateFile(f storage.Upload, lim Limits) error {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(f.ContentType, ";", 2)[0]))
	if !slices.Contains(lim.AllowedTypes, ct) {
		return invalid("Invalid file type. Only PDF, JPG, and PNG are allowed.")
	}
	ext := strings.ToLower(filepath.Ext(f.FileName))
	if exts, ok := allowedExtensions[ct]; ok && !slices.Contains(exts, ext) {
		return invalid("Invalid file type. Only PDF, JPG, and PNG are allowed.")
	}
	if f.Size < 0 || f.Size > lim.MaxFileBytes {
		return invalid("File %s exceeds the %d byte limit.", f.FileName, lim.MaxFileBytes)
	}
	if f.Open == nil {
		return invalid("File %s has no content.", f.FileName)
	}
	return nil
}

func parseAmount(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number")
	}
	return f, nil
}

// fitsMoney reports whether f is storable without overflow or rounding.
func fitsMoney(f float64) bool {
	if math.Abs(f) >= moneyLimit {
		return false
	}
	digits := strconv.FormatFloat(f, 'f', -1, 64)
	if i := strings.IndexByte(digits, '.'); i >= 0 {
		return len(digits)-i-1 <= moneyScale
	}
	return true
}
