package model

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrEmptyDataset         = errors.New("no training sequences")
	ErrDegenerateDataset    = errors.New("all training sequences have length <= 1")
	ErrDegenerateVocabulary = errors.New("vocabulary has fewer than 2 achievements")
	ErrNotTrained           = errors.New("model has not been trained")
)
