package domain

import (
	"fmt"
	"strings"
	"time"
)

// DataType is the entity kind an import targets.
type DataType string

const (
	DataTypeCustomer       DataType = "customer"
	DataTypeSubsidiary     DataType = "subsidiary"
	DataTypeOpportunity    DataType = "opportunity"
	DataTypeDeal           DataType = "deal"
	DataTypeNews           DataType = "news"
	DataTypeProject        DataType = "project"
	DataTypeRecommendation DataType = "recommendation"
)

var dataTypes = []DataType{
	DataTypeCustomer,
	DataTypeSubsidiary,
	DataTypeOpportunity,
	DataTypeDeal,
	DataTypeNews,
	DataTypeProject,
	DataTypeRecommendation,
}

// DataTypes lists every importable data type.
func DataTypes() []DataType {
	out := make([]DataType, len(dataTypes))
	copy(out, dataTypes)
	return out
}

// ParseDataType validates a data type name.
func ParseDataType(value string) (DataType, error) {
	candidate := DataType(strings.ToLower(strings.TrimSpace(value)))
	for _, dt := range dataTypes {
		if dt == candidate {
			return dt, nil
		}
	}
	return "", fmt.Errorf("unsupported data type %q", value)
}

// ImportStatus is the lifecycle state of an ImportJob.
type ImportStatus string

const (
	ImportStatusPending    ImportStatus = "pending"
	ImportStatusProcessing ImportStatus = "processing"
	ImportStatusCompleted  ImportStatus = "completed"
	ImportStatusFailed     ImportStatus = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s ImportStatus) Terminal() bool {
	return s == ImportStatusCompleted || s == ImportStatusFailed
}

// ImportJob records one bulk upload and its row accounting.
type ImportJob struct {
	ID             int64        `json:"id"`
	FileName       string       `json:"file_name"`
	FileType       string       `json:"file_type"`
	DataType       DataType     `json:"data_type"`
	Status         ImportStatus `json:"status"`
	TotalRows      int          `json:"total_rows"`
	SuccessRows    int          `json:"success_rows"`
	FailedRows     int          `json:"failed_rows"`
	ErrorLog       []string     `json:"error_log"`
	ImportedBy     *int64       `json:"imported_by,omitempty"`
	ImportedByName string       `json:"imported_by_name,omitempty"`
	StartedAt      time.Time    `json:"started_at"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// NewImportJob creates a pending job. Until its terminal update the job counts as processing.
func NewImportJob(dataType DataType, fileName, fileType string, actor Actor) ImportJob {
	now := time.Now().UTC()
	job := ImportJob{
		FileName:       fileName,
		FileType:       fileType,
		DataType:       dataType,
		Status:         ImportStatusPending,
		ErrorLog:       []string{},
		ImportedByName: actor.Name,
		StartedAt:      now,
		CreatedAt:      now,
	}
	if actor.ID != 0 {
		id := actor.ID
		job.ImportedBy = &id
	}
	return job
}

// JobOutcome is the single terminal write applied to an ImportJob.
type JobOutcome struct {
	Status      ImportStatus
	TotalRows   int
	SuccessRows int
	FailedRows  int
	ErrorLog    []string
	CompletedAt time.Time
}

// CompletedOutcome describes a job whose row loop ran to the end.
func CompletedOutcome(total, success, failed int, errs []string, at time.Time) JobOutcome {
	if errs == nil {
		errs = []string{}
	}
	return JobOutcome{
		Status:      ImportStatusCompleted,
		TotalRows:   total,
		SuccessRows: success,
		FailedRows:  failed,
		ErrorLog:    errs,
		CompletedAt: at,
	}
}

// FailedOutcome describes a job aborted by a batch-level error. The counts reflect the rows
// processed before the abort; the log holds the single critical message.
func FailedOutcome(cause error, total, success, failed int, at time.Time) JobOutcome {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return JobOutcome{
		Status:      ImportStatusFailed,
		TotalRows:   total,
		SuccessRows: success,
		FailedRows:  failed,
		ErrorLog:    []string{CriticalErrorPrefix + msg},
		CompletedAt: at,
	}
}

// CriticalErrorPrefix marks the log entry of a job that failed as a whole.
const CriticalErrorPrefix = "Critical Import Error: "

// ImportJobFilter narrows import history listings.
type ImportJobFilter struct {
	Status ImportStatus
	Limit  int
	Offset int
}
