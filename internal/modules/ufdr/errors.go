package ufdr

import "errors"

var (
	ErrDuplicateContent = errors.New("file with identical content already uploaded")
	ErrEmptyFile        = errors.New("file is empty")
	ErrFileTooLarge     = errors.New("file exceeds maximum allowed size")
	ErrFileNotFound     = errors.New("ufdr file not found")
	ErrCaseNotFound     = errors.New("case not found")
	ErrNotOwner         = errors.New("only the uploader or an admin may delete this file")
)
