// Package scripted builds capabilities from a YAML description. Each
// operation returns a canned output after an optional latency and can be
// told to fail on specific inputs or on its first calls.
package scripted

import (
	"bytes"
	"codedoc/internal/capability"
	"codedoc/internal/ports"
	"codedoc/internal/retry"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultFixture []byte

type File struct {
	Providers []ProviderSpec `yaml:"providers"`
}

type ProviderSpec struct {
	Name       string                   `yaml:"name"`
	Operations map[string]OperationSpec `yaml:"operations"`
}

type OperationSpec struct {
	Latency   time.Duration       `yaml:"latency"`
	Output    map[string]any      `yaml:"output"`
	Echo      []string            `yaml:"echo"`
	FailWhen  map[string][]string `yaml:"fail_when"`
	FailFirst int                 `yaml:"fail_first"`
	Error     string              `yaml:"error"`
}

// Decode reads a providers file. Unknown keys are rejected.
func Decode(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("decode providers: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func LoadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return Decode(fh)
}

// Default returns the embedded fixture covering every provider the
// dispatcher routes to.
func Default() (*File, error) {
	return Decode(bytes.NewReader(defaultFixture))
}

// Load reads path, or the embedded fixture when path is empty.
func Load(path string) (*File, error) {
	if path == "" {
		return Default()
	}
	return LoadFile(path)
}

func (f *File) validate() error {
	seen := make(map[string]bool, len(f.Providers))
	for i, p := range f.Providers {
		if p.Name == "" {
			return fmt.Errorf("provider #%d: name is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("provider %s: declared twice", p.Name)
		}
		seen[p.Name] = true
		for op, spec := range p.Operations {
			if spec.Latency < 0 || spec.FailFirst < 0 {
				return fmt.Errorf("provider %s.%s: latency and fail_first must not be negative", p.Name, op)
			}
		}
	}
	return nil
}

type Option func(*builder)

// WithSleep replaces the latency wait, mainly for tests.
func WithSleep(sleep retry.SleepFunc) Option {
	return func(b *builder) { b.sleep = sleep }
}

type builder struct {
	sleep retry.SleepFunc
}

// Build turns every declared provider into a capability.
func (f *File) Build(opts ...Option) []*capability.Provider {
	b := builder{sleep: retry.Sleep}
	for _, opt := range opts {
		opt(&b)
	}

	providers := make([]*capability.Provider, 0, len(f.Providers))
	for _, p := range f.Providers {
		ops := make(map[string]ports.Operation, len(p.Operations))
		for name, spec := range p.Operations {
			ops[name] = b.operation(p.Name, name, spec)
		}
		providers = append(providers, capability.New(p.Name, ops))
	}
	return providers
}

// Registerer is satisfied by *registry.Registry.
type Registerer interface {
	Register(p ports.Capability) error
}

// RegisterAll builds the providers in f and registers each of them,
// returning their names in declaration order.
func RegisterAll(reg Registerer, f *File, opts ...Option) ([]string, error) {
	var names []string
	for _, p := range f.Build(opts...) {
		if err := reg.Register(p); err != nil {
			return names, err
		}
		names = append(names, p.Name())
	}
	return names, nil
}

func (b builder) operation(provider, name string, spec OperationSpec) ports.Operation {
	var calls atomic.Int64
	message := spec.Error
	if message == "" {
		message = "scripted failure"
	}

	return func(ctx context.Context, in ports.Input) (ports.Output, error) {
		n := calls.Add(1)
		if spec.Latency > 0 {
			if err := b.sleep(ctx, spec.Latency); err != nil {
				return nil, err
			}
		}

		if n <= int64(spec.FailFirst) {
			return nil, fmt.Errorf("%s.%s call %d: %s", provider, name, n, message)
		}
		for key, values := range spec.FailWhen {
			got := fmt.Sprint(in[key])
			for _, v := range values {
				if got == v {
					return nil, fmt.Errorf("%s.%s %s=%s: %s", provider, name, key, got, message)
				}
			}
		}

		out := make(ports.Output, len(spec.Output)+len(spec.Echo))
		for k, v := range spec.Output {
			out[k] = v
		}
		for _, key := range spec.Echo {
			if v, ok := in[key]; ok {
				out[key] = v
			}
		}
		return out, nil
	}
}
