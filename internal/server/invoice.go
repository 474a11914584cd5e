package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/construpro/internal/common"
	"github.com/joseph-ayodele/construpro/internal/core"
	"github.com/joseph-ayodele/construpro/internal/entity"
)

// Metadata keys understood by InvoiceServer.
const (
	FileNameKey    = "x-file-name"
	CreateJobKey   = "x-create-job"
	NeedsReviewKey = "x-needs-review"
	TotalTierKey   = "x-total-tier"
)

const defaultUploadName = "upload.pdf"

// UploadProcessor runs one upload through extraction.
type UploadProcessor interface {
	ProcessUpload(ctx context.Context, up core.Upload) (core.Outcome, error)
}

type InvoiceServer struct {
	proc   UploadProcessor
	logger *slog.Logger
}

var _ InvoiceServiceServer = (*InvoiceServer)(nil)

func NewInvoiceServer(proc UploadProcessor, logger *slog.Logger) *InvoiceServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvoiceServer{proc: proc, logger: logger}
}

// Extract returns the extracted record. The file name and job creation flag
// come from request metadata; review signals go back as response headers.
func (s *InvoiceServer) Extract(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error) {
	out, err := s.process(ctx, req, false)
	if err != nil {
		return nil, err
	}
	st, err := recordStruct(out.Record)
	if err != nil {
		s.logger.Error("record conversion failed", "error", err)
		return nil, common.InternalError("record conversion failed")
	}
	return st, nil
}

func (s *InvoiceServer) process(ctx context.Context, req *wrapperspb.BytesValue, extractOnly bool) (core.Outcome, error) {
	if len(req.GetValue()) == 0 {
		return core.Outcome{}, common.InvalidArgumentError("document bytes are required")
	}

	up := core.Upload{Name: defaultUploadName, Data: req.GetValue(), ExtractOnly: extractOnly}
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(FileNameKey); len(v) > 0 && v[0] != "" {
			up.Name = v[0]
		}
		if v := md.Get(CreateJobKey); len(v) > 0 {
			up.CreateJob, _ = strconv.ParseBool(v[0])
		}
	}

	out, err := s.proc.ProcessUpload(ctx, up)
	if err != nil {
		s.logger.Warn("grpc extract failed", "name", up.Name, "error", err)
		return core.Outcome{}, grpcError(err)
	}

	header := metadata.Pairs(
		NeedsReviewKey, strconv.FormatBool(out.NeedsReview),
		TotalTierKey, out.TotalTier,
	)
	if err := grpc.SetHeader(ctx, header); err != nil {
		s.logger.Debug("could not set response header", "error", err)
	}
	return out, nil
}

// recordStruct converts a record through its JSON form so field names match
// the HTTP API.
func recordStruct(rec entity.ExtractedInvoiceRecord) (*structpb.Struct, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}
