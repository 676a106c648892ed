package zatcaqr

import (
	"context"
	"io"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/rezonia/zatca-qr/internal/model"
	"github.com/rezonia/zatca-qr/internal/processor"
	"github.com/rezonia/zatca-qr/internal/verify"
)

// Result represents one processed invoice
type Result struct {
	Invoice  *Invoice
	Document *Document
	Base64   string
	Image    *RenderOutput
	Warnings []string
}

// VerifyResult is the outcome of reading a payload back
type VerifyResult = verify.Result

// ProcessorOptions configures a Processor
type ProcessorOptions struct {
	// Render also renders each payload when set
	Render bool
	// RenderOptions are passed to the renderer
	RenderOptions RenderOptions
	// Concurrency bounds ProcessBatch; zero means GOMAXPROCS
	Concurrency int
}

// DefaultProcessorOptions returns options with rendering disabled
func DefaultProcessorOptions() ProcessorOptions {
	return ProcessorOptions{
		RenderOptions: DefaultRenderOptions(),
		Concurrency:   runtime.GOMAXPROCS(0),
	}
}

// Processor turns invoice XML or JSON fields into QR payloads
type Processor struct {
	pipeline  *processor.Pipeline
	verifiers *verify.Registry
	options   ProcessorOptions
}

// NewProcessor creates a processor with the given options
func NewProcessor(opts ProcessorOptions) *Processor {
	pipelineOpts := []processor.Option{
		processor.WithRenderOptions(opts.RenderOptions),
	}
	if opts.Render {
		pipelineOpts = append(pipelineOpts, processor.WithRenderer(NewQRCodeRenderer()))
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.GOMAXPROCS(0)
	}

	return &Processor{
		pipeline:  processor.NewPipeline(pipelineOpts...),
		verifiers: verify.NewDefaultRegistry(),
		options:   opts,
	}
}

// NewDefaultProcessor creates a processor with default options
func NewDefaultProcessor() *Processor {
	return NewProcessor(DefaultProcessorOptions())
}

// Process auto-detects XML or JSON input and encodes it
func (p *Processor) Process(ctx context.Context, r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, model.NewParseError("input", "content", "failed to read input", err)
	}
	return toResult(p.pipeline.Process(ctx, data))
}

// ProcessXML processes invoice XML directly
func (p *Processor) ProcessXML(ctx context.Context, r io.Reader) (*Result, error) {
	return toResult(p.pipeline.ProcessXML(ctx, r))
}

// ProcessInvoice encodes an invoice field set
func (p *Processor) ProcessInvoice(ctx context.Context, inv *Invoice) (*Result, error) {
	return toResult(p.pipeline.ProcessInvoice(ctx, inv))
}

// ProcessBatch processes multiple inputs concurrently. Results keep input
// order; the first error cancels the remaining work.
func (p *Processor) ProcessBatch(ctx context.Context, inputs []io.Reader) ([]*Result, error) {
	results := make([]*Result, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.options.Concurrency)

	for i, input := range inputs {
		i, input := i, input
		g.Go(func() error {
			result, err := p.Process(ctx, input)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}

	err := g.Wait()
	return results, err
}

// Verify reads a payload back from a QR image or base64 text and checks it
func (p *Processor) Verify(ctx context.Context, data []byte) (*VerifyResult, error) {
	return p.verifiers.Verify(ctx, data)
}

func toResult(r *processor.Result) (*Result, error) {
	if r.Error != nil {
		return nil, r.Error
	}
	return &Result{
		Invoice:  r.Invoice,
		Document: r.Document,
		Base64:   r.Base64,
		Image:    r.Image,
		Warnings: r.Warnings,
	}, nil
}
