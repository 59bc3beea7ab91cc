package bucketsample

// Fixed metadata fields injected into every synthesized schema. They record
// row provenance and an overflow bucket for columns beyond the CSV header.
const (
	// SourceBucketField records the bucket a row was sampled from.
	SourceBucketField = "_sdc_source_bucket"

	// SourceFileField records the object key (or "<key>/<member>" for rows
	// sampled out of an archive member) a row was sampled from.
	SourceFileField = "_sdc_source_file"

	// SourceLinenoField records the row's line number within its file.
	SourceLinenoField = "_sdc_source_lineno"

	// ExtraField collects CSV values that overflow the header row.
	ExtraField = "_sdc_extra"
)
