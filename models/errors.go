package models

import "errors"

var (
	// ErrPhenotypeNotFound is returned when no ontology trait is close enough
	// to the requested phenotype.
	ErrPhenotypeNotFound = errors.New("phenotype not found")
	// ErrNoSignificantSNPs is returned when the phenotype has no association
	// below the p-value threshold.
	ErrNoSignificantSNPs = errors.New("no significant risk SNPs")
	// ErrInvalidInput marks a request that cannot be run, such as an empty
	// phenotype or an unknown population code.
	ErrInvalidInput = errors.New("invalid input")
)
