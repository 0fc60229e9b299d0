package writer

import (
	"bytes"
	"fmt"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"ldexplorer/models"
	"ldexplorer/processor"
)

// ParquetRecord is one flattened trait row of a report.
type ParquetRecord struct {
	InputSNP         string   `parquet:"name=input_snp, type=BYTE_ARRAY, convertedtype=UTF8"`
	RiskAllele       string   `parquet:"name=risk_allele, type=BYTE_ARRAY, convertedtype=UTF8"`
	LinkedRS         string   `parquet:"name=linked_rs, type=BYTE_ARRAY, convertedtype=UTF8"`
	R2               float64  `parquet:"name=r2, type=DOUBLE"`
	CorrelatedAllele string   `parquet:"name=correlated_allele, type=BYTE_ARRAY, convertedtype=UTF8"`
	Trait            *string  `parquet:"name=trait, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	OddsRatio        *float64 `parquet:"name=odds_ratio, type=DOUBLE, repetitiontype=OPTIONAL"`
	RiskFrequency    *string  `parquet:"name=risk_frequency, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Beta             *float64 `parquet:"name=beta, type=DOUBLE, repetitiontype=OPTIONAL"`
	BetaUnit         *string  `parquet:"name=beta_unit, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	BetaDirection    *string  `parquet:"name=beta_direction, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	PValue           *float64 `parquet:"name=pvalue, type=DOUBLE, repetitiontype=OPTIONAL"`
}

func toParquetRecord(row models.ReportRow) ParquetRecord {
	return ParquetRecord{
		InputSNP:         row.InputSNP,
		RiskAllele:       row.RiskAllele,
		LinkedRS:         row.LinkedRS,
		R2:               row.R2,
		CorrelatedAllele: row.CorrelatedAllele,
		Trait:            row.Trait.Ptr(),
		OddsRatio:        row.OddsRatio.Ptr(),
		RiskFrequency:    row.RiskFrequency.Ptr(),
		Beta:             row.Beta.Ptr(),
		BetaUnit:         row.BetaUnit.Ptr(),
		BetaDirection:    row.BetaDirection.Ptr(),
		PValue:           row.PValue.Ptr(),
	}
}

// memoryFileWriter implements source.ParquetFile for in-memory writing
type memoryFileWriter struct {
	buffer *bytes.Buffer
}

func newMemoryFileWriter() *memoryFileWriter {
	return &memoryFileWriter{
		buffer: &bytes.Buffer{},
	}
}

func (mfw *memoryFileWriter) Create(name string) (source.ParquetFile, error) {
	return mfw, nil
}

func (mfw *memoryFileWriter) Open(name string) (source.ParquetFile, error) {
	return mfw, nil
}

// Seek only reports the current size; the writer never seeks backwards.
func (mfw *memoryFileWriter) Seek(offset int64, whence int) (int64, error) {
	return int64(mfw.buffer.Len()), nil
}

func (mfw *memoryFileWriter) Read(b []byte) (int, error) {
	return mfw.buffer.Read(b)
}

func (mfw *memoryFileWriter) Write(b []byte) (int, error) {
	return mfw.buffer.Write(b)
}

func (mfw *memoryFileWriter) Close() error {
	return nil
}

func (mfw *memoryFileWriter) Bytes() []byte {
	return mfw.buffer.Bytes()
}

func compressionCodec(name string) parquet.CompressionCodec {
	switch name {
	case "snappy":
		return parquet.CompressionCodec_SNAPPY
	case "gzip":
		return parquet.CompressionCodec_GZIP
	case "lzo":
		return parquet.CompressionCodec_LZO
	default:
		return parquet.CompressionCodec_UNCOMPRESSED
	}
}

// EncodeParquet writes the flattened rows of report as a parquet file.
func EncodeParquet(report models.LDReport, compression string) ([]byte, error) {
	fw := newMemoryFileWriter()

	pw, err := writer.NewParquetWriter(fw, new(ParquetRecord), 4)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = compressionCodec(compression)

	for _, row := range processor.Flatten(report) {
		if err := pw.Write(toParquetRecord(row)); err != nil {
			pw.WriteStop()
			return nil, fmt.Errorf("failed to write parquet record: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("failed to finalize parquet writing: %w", err)
	}
	return fw.Bytes(), nil
}
