package server

import (
	"context"
	"net"
	"testing"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/construpro/internal/common"
	"github.com/joseph-ayodele/construpro/internal/core"
	"github.com/joseph-ayodele/construpro/internal/core/extract"
	"github.com/joseph-ayodele/construpro/internal/core/fields"
	"github.com/joseph-ayodele/construpro/internal/core/pdftext"
	"github.com/joseph-ayodele/construpro/internal/entity"
)

var sampleRecord = entity.ExtractedInvoiceRecord{
	CompanyName:  "ACME CO",
	ProjectTitle: "Kitchen Refit",
	ClientName:   "Jane Doe",
	TotalAmount:  1380,
	Items: []entity.BoQLineItem{
		{ID: 1, Description: "Floor tiles", Unit: "m²", Quantity: 5, Rate: 240, Amount: 1200, Category: "Tiling installation"},
	},
}

// stubProcessor answers by file name: "broken.pdf" fails to parse and
// "notes.txt" is rejected as unsupported.
type stubProcessor struct {
	last core.Upload
}

func (p *stubProcessor) ProcessUpload(_ context.Context, up core.Upload) (core.Outcome, error) {
	p.last = up
	switch up.Name {
	case "broken.pdf":
		return core.Outcome{}, &extract.ParsingError{Err: &pdftext.LoadError{Op: "open", Err: pdftext.ErrEmptyDocument}}
	case "notes.txt":
		return core.Outcome{}, common.NewAppError("UNSUPPORTED_FILE", "please upload a PDF file", common.ErrInvalidInput)
	}
	out := core.Outcome{Record: sampleRecord, Pages: 1, TotalTier: fields.TierLabelled.String(), FileID: uuid.New()}
	if up.CreateJob {
		out.Job = &entity.Job{ID: uuid.New(), Title: sampleRecord.ProjectTitle}
	}
	return out, nil
}

const bufSize = 1 << 20

func startGRPC(t *testing.T, proc UploadProcessor) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(bufSize)
	srv := grpc.NewServer()
	RegisterInvoiceServiceServer(srv, NewInvoiceServer(proc, nil))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(InvoiceServiceName, healthpb.HealthCheckResponse_SERVING)

	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestInvoiceService_Extract(t *testing.T) {
	proc := &stubProcessor{}
	client := NewInvoiceServiceClient(startGRPC(t, proc))

	ctx := metadata.AppendToOutgoingContext(context.Background(), FileNameKey, "quote.pdf", CreateJobKey, "true")
	var header metadata.MD
	st, err := client.Extract(ctx, wrapperspb.Bytes([]byte("%PDF-1.7")), grpc.Header(&header))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	m := st.AsMap()
	if m["project_title"] != "Kitchen Refit" || m["total_amount"] != 1380.0 {
		t.Errorf("record = %v", m)
	}
	items, ok := m["items"].([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("items = %v", m["items"])
	}
	if got := items[0].(map[string]any)["unit"]; got != "m²" {
		t.Errorf("unit = %v", got)
	}
	if proc.last.Name != "quote.pdf" || !proc.last.CreateJob || proc.last.ExtractOnly {
		t.Errorf("upload = %+v", proc.last)
	}
	if got := header.Get(TotalTierKey); len(got) != 1 || got[0] != "labelled" {
		t.Errorf("total tier header = %v", got)
	}
}

func TestInvoiceService_Errors(t *testing.T) {
	client := NewInvoiceServiceClient(startGRPC(t, &stubProcessor{}))

	tests := []struct {
		name string
		file string
		data []byte
		want codes.Code
	}{
		{"empty body", "quote.pdf", nil, codes.InvalidArgument},
		{"parsing error", "broken.pdf", []byte("%PDF-"), codes.InvalidArgument},
		{"unsupported", "notes.txt", []byte("hello"), codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := metadata.AppendToOutgoingContext(context.Background(), FileNameKey, tt.file)
			_, err := client.Extract(ctx, wrapperspb.Bytes(tt.data))
			if got := status.Code(err); got != tt.want {
				t.Errorf("code = %v, want %v (err = %v)", got, tt.want, err)
			}
		})
	}
}

func TestInvoiceService_ExportBoQ(t *testing.T) {
	proc := &stubProcessor{}
	client := NewInvoiceServiceClient(startGRPC(t, proc))

	ctx := metadata.AppendToOutgoingContext(context.Background(), CreateJobKey, "true")
	out, err := client.ExportBoQ(ctx, wrapperspb.Bytes([]byte("%PDF-1.7")))
	if err != nil {
		t.Fatalf("ExportBoQ() error = %v", err)
	}
	if !proc.last.ExtractOnly {
		t.Errorf("export should not store history or jobs: %+v", proc.last)
	}
	// xlsx files are zip archives
	if b := out.GetValue(); len(b) < 4 || string(b[:2]) != "PK" {
		t.Errorf("ExportBoQ() returned %d bytes without a zip header", len(out.GetValue()))
	}
}

func TestHealthService(t *testing.T) {
	conn := startGRPC(t, &stubProcessor{})
	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: InvoiceServiceName})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("status = %v", resp.GetStatus())
	}
}
