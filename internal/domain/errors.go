package domain

import "errors"

var (
	// ErrInvalidQuery signals an empty or whitespace-only search query.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrEncoding signals a text or image encoder failure.
	ErrEncoding = errors.New("encoding failed")
	// ErrUnsupportedFormat signals unrecognized image bytes.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrEmptyEmbeddings signals stored vectors that are empty (ingestion defect).
	ErrEmptyEmbeddings = errors.New("stored embeddings are empty")
	// ErrRetrieval signals a vector index failure.
	ErrRetrieval = errors.New("vector retrieval failed")
	// ErrDetection signals a vehicle region detector failure (non-fatal).
	ErrDetection = errors.New("vehicle detection failed")

	// ErrImageNotFound signals a missing image record.
	ErrImageNotFound = errors.New("image not found")
	// ErrDuplicateImage signals an already-imported file path or original name.
	ErrDuplicateImage = errors.New("image already exists")
	// ErrTagExists signals adding a tag the record already carries.
	ErrTagExists = errors.New("tag already exists")
	// ErrTagNotFound signals removing a tag the record does not carry.
	ErrTagNotFound = errors.New("tag not found")
	// ErrInvalidTag signals an empty or malformed tag.
	ErrInvalidTag = errors.New("invalid tag")
	// ErrFileTooLarge signals an upload exceeding the size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrJobNotFound signals a missing import job.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobFinished signals an operation on an already-terminal job.
	ErrJobFinished = errors.New("job already finished")
)
