package server

import (
	"context"

	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/construpro/internal/common"
	"github.com/joseph-ayodele/construpro/internal/export"
)

// ExportBoQ extracts the document and renders its items as an XLSX workbook.
// Nothing is stored.
func (s *InvoiceServer) ExportBoQ(ctx context.Context, req *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	out, err := s.process(ctx, req, true)
	if err != nil {
		return nil, err
	}

	xlsx, err := export.ExportBoQXLSX(out.Record)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "project", out.Record.ProjectTitle, "error", err)
		return nil, common.InternalError(err.Error())
	}
	return wrapperspb.Bytes(xlsx), nil
}
