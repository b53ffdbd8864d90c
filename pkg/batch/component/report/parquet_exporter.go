package report

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	storage "github.com/tigerroll/nameforge/pkg/batch/adapter/storage"
	exception "github.com/tigerroll/nameforge/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/nameforge/pkg/batch/support/util/logger"
)

// ParquetExporter writes status rows as a single Parquet object to a storage connection.
type ParquetExporter struct {
	conn        storage.StorageConnection
	compression parquet.CompressionCodec
}

// NewParquetExporter creates a ParquetExporter. compressionType is SNAPPY (default), GZIP or NONE.
func NewParquetExporter(conn storage.StorageConnection, compressionType string) (*ParquetExporter, error) {
	codec, err := getCompressionCodec(compressionType)
	if err != nil {
		return nil, exception.NewBatchError("report", fmt.Sprintf("invalid compression type '%s'", compressionType), err, false, false)
	}
	return &ParquetExporter{conn: conn, compression: codec}, nil
}

// Export encodes rows and uploads them as objectName in the connection's default bucket.
func (e *ParquetExporter) Export(ctx context.Context, objectName string, rows []StatusRow) (err error) {
	buf := new(bytes.Buffer)
	rowGroupSize := int64(len(rows))
	if rowGroupSize == 0 {
		rowGroupSize = 1
	}
	pw, err := writer.NewParquetWriterFromWriter(buf, new(StatusRow), rowGroupSize)
	if err != nil {
		return exception.NewBatchError("report", "failed to create Parquet writer", err, false, false)
	}
	pw.CompressionType = e.compression

	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			return exception.NewBatchError("report", fmt.Sprintf("failed to encode row '%s'", row.ID), err, false, false)
		}
	}

	// WriteStop can panic on malformed schemas.
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = exception.NewBatchError("report", fmt.Sprintf("Parquet writer panicked: %v", r), nil, false, false)
			}
		}()
		if stopErr := pw.WriteStop(); stopErr != nil {
			err = exception.NewBatchError("report", "failed to finalize Parquet file", stopErr, false, false)
		}
	}()
	if err != nil {
		return err
	}

	logger.Debugf("Uploading %d bytes to %s:%s", buf.Len(), e.conn.Name(), objectName)
	if err := e.conn.Upload(ctx, "", objectName, buf, "application/octet-stream"); err != nil {
		return exception.NewStorageError("report", fmt.Sprintf("failed to upload '%s'", objectName), err)
	}
	logger.Infof("Exported %d status rows to %s:%s", len(rows), e.conn.Name(), objectName)
	return nil
}

func getCompressionCodec(compressionType string) (parquet.CompressionCodec, error) {
	switch strings.ToUpper(compressionType) {
	case "SNAPPY", "":
		return parquet.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return parquet.CompressionCodec_GZIP, nil
	case "NONE":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	default:
		return 0, fmt.Errorf("unsupported compression type: %s", compressionType)
	}
}
