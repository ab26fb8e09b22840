package wasmhost

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/cwbudde/wavescope/schema"
	"github.com/cwbudde/wavescope/transform"
)

// Guest ABI: exported functions return a packed u64 of (ptr<<32)|len
// pointing at a JSON payload in guest memory. The host frees returned
// buffers through deallocate and hands input buffers over via allocate.
const (
	fnDescribe     = "describe"
	fnParamsSchema = "params_schema"
	fnTransform    = "transform"
	fnAllocate     = "allocate"
	fnDeallocate   = "deallocate"
	fnInitialize   = "_initialize"
)

type wireInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

type transformRequest struct {
	SampleRate float64       `json:"sample_rate"`
	Samples    []float32     `json:"samples"`
	Params     schema.Values `json:"params"`
}

type wireResult struct {
	Image  [][]float32    `json:"image"`
	YAxis  []float32      `json:"y_axis"`
	XAxis  []float32      `json:"x_axis"`
	YLabel string         `json:"y_label"`
	Meta   map[string]any `json:"meta"`
	Error  string         `json:"error"`
}

// plugin adapts one compiled guest module to the transform contract.
type plugin struct {
	host     *Host
	compiled wazero.CompiledModule
	name     string
	schema   schema.Schema
}

// DescribeParams returns the schema fetched from the guest at load time.
func (p *plugin) DescribeParams() schema.Schema {
	return p.schema
}

// Transform runs the guest's transform export against one window.
func (p *plugin) Transform(samples []float32, sampleRate float64, params schema.Values) (*transform.Result, error) {
	payload, err := json.Marshal(transformRequest{
		SampleRate: sampleRate,
		Samples:    samples,
		Params:     params,
	})
	if err != nil {
		return nil, fmt.Errorf("wasmhost: marshal request for %s: %w", p.name, err)
	}

	raw, err := p.callJSON(context.Background(), fnTransform, payload)
	if err != nil {
		return nil, err
	}

	var wire wireResult
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("wasmhost: parse transform payload from %s: %w", p.name, err)
	}
	if wire.Error != "" {
		return nil, fmt.Errorf("wasmhost: plugin %s: %s", p.name, wire.Error)
	}
	for _, row := range wire.Image {
		if len(row) != len(wire.Image[0]) {
			return nil, fmt.Errorf("wasmhost: plugin %s returned ragged image rows", p.name)
		}
	}

	return &transform.Result{
		Image:  wire.Image,
		YAxis:  wire.YAxis,
		XAxis:  wire.XAxis,
		YLabel: wire.YLabel,
		Meta:   wire.Meta,
	}, nil
}

// Close frees the compiled module. Called by the registry when the plugin
// is replaced or the registry shuts down.
func (p *plugin) Close() error {
	return p.compiled.Close(context.Background())
}

func (p *plugin) describe(ctx context.Context) (transform.Info, error) {
	raw, err := p.callJSON(ctx, fnDescribe, nil)
	if err != nil {
		return transform.Info{}, err
	}
	var wire wireInfo
	if err := json.Unmarshal(raw, &wire); err != nil {
		return transform.Info{}, fmt.Errorf("wasmhost: parse describe payload from %s: %w", p.name, err)
	}
	return transform.Info{
		ID:          wire.ID,
		Name:        wire.Name,
		Kind:        wire.Kind,
		Version:     wire.Version,
		Description: wire.Description,
	}, nil
}

func (p *plugin) paramsSchema(ctx context.Context) (schema.Schema, error) {
	raw, err := p.callJSON(ctx, fnParamsSchema, nil)
	if err != nil {
		return nil, err
	}
	var sch schema.Schema
	if err := json.Unmarshal(raw, &sch); err != nil {
		return nil, fmt.Errorf("wasmhost: parse schema payload from %s: %w", p.name, err)
	}
	return sch, nil
}

// instantiate creates a fresh anonymous instance for one call, so
// concurrent calls never share guest memory.
func (p *plugin) instantiate(ctx context.Context) (api.Module, error) {
	instance, err := p.host.runtime.InstantiateModule(ctx, p.compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return nil, fmt.Errorf("wasmhost: instantiate %s: %w", p.name, err)
	}
	// Reactor-style modules expect _initialize before anything else.
	if initFn := instance.ExportedFunction(fnInitialize); initFn != nil {
		if _, err := initFn.Call(ctx); err != nil {
			_ = instance.Close(ctx)
			return nil, fmt.Errorf("wasmhost: initialize %s: %w", p.name, err)
		}
	}
	return instance, nil
}

// callJSON invokes an exported guest function, passing input (if any)
// through guest memory, and returns a copy of the JSON payload the guest
// responded with.
func (p *plugin) callJSON(ctx context.Context, fnName string, input []byte) ([]byte, error) {
	instance, err := p.instantiate(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = instance.Close(ctx)
	}()

	fn := instance.ExportedFunction(fnName)
	if fn == nil {
		return nil, fmt.Errorf("wasmhost: plugin %s does not export %s", p.name, fnName)
	}

	var results []uint64
	if input == nil {
		results, err = fn.Call(ctx)
	} else {
		var ptr uint32
		ptr, err = p.writeGuestBuffer(ctx, instance, input)
		if err != nil {
			return nil, err
		}
		defer p.freeGuestBuffer(ctx, instance, ptr, uint32(len(input)))
		results, err = fn.Call(ctx, uint64(ptr), uint64(len(input)))
	}
	if err != nil {
		return nil, fmt.Errorf("wasmhost: call %s in %s: %w", fnName, p.name, err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("wasmhost: %s in %s returned no value", fnName, p.name)
	}

	packed := results[0]
	ptr := uint32(packed >> 32)
	size := uint32(packed & 0xFFFFFFFF)
	if ptr == 0 || size == 0 {
		return nil, fmt.Errorf("wasmhost: %s in %s returned an empty payload", fnName, p.name)
	}
	return p.readGuestBuffer(ctx, instance, ptr, size)
}

func (p *plugin) writeGuestBuffer(ctx context.Context, instance api.Module, data []byte) (uint32, error) {
	allocate := instance.ExportedFunction(fnAllocate)
	if allocate == nil {
		return 0, fmt.Errorf("wasmhost: plugin %s does not export %s", p.name, fnAllocate)
	}
	results, err := allocate.Call(ctx, uint64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("wasmhost: allocate in %s: %w", p.name, err)
	}
	if len(results) == 0 || uint32(results[0]) == 0 {
		return 0, fmt.Errorf("wasmhost: allocate in %s returned no buffer", p.name)
	}
	ptr := uint32(results[0])
	if !instance.Memory().Write(ptr, data) {
		return 0, fmt.Errorf("wasmhost: write %d bytes at %d in %s", len(data), ptr, p.name)
	}
	return ptr, nil
}

// readGuestBuffer copies size bytes out of guest memory and releases the
// guest allocation.
func (p *plugin) readGuestBuffer(ctx context.Context, instance api.Module, ptr, size uint32) ([]byte, error) {
	defer p.freeGuestBuffer(ctx, instance, ptr, size)

	data, ok := instance.Memory().Read(ptr, size)
	if !ok {
		return nil, fmt.Errorf("wasmhost: read %d bytes at %d in %s", size, ptr, p.name)
	}
	out := make([]byte, size)
	copy(out, data)
	return out, nil
}

func (p *plugin) freeGuestBuffer(ctx context.Context, instance api.Module, ptr, size uint32) {
	if deallocate := instance.ExportedFunction(fnDeallocate); deallocate != nil {
		_, _ = deallocate.Call(ctx, uint64(ptr), uint64(size))
	}
}
