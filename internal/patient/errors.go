package patient

import "errors"

var (
	ErrPatientNotFound = errors.New("patient not found")
	ErrDuplicatePhone  = errors.New("patient with this phone number already exists")
)
