package entity

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/yhonda-ohishi/grpcweb-bridge/codec"
)

// Definition is one dictionary entry.
type Definition struct {
	Description string
	Fields      []Field
	Workflows   []Workflow
}

// maxSamples caps DescribeRequest.Count.
const maxSamples = 50

// Dictionary is an in-memory Server.
type Dictionary struct {
	mu       sync.RWMutex
	entities map[string]Definition
}

var _ Server = (*Dictionary)(nil)

// NewDictionary returns a dictionary preloaded with the default entities.
func NewDictionary() *Dictionary {
	d := &Dictionary{entities: make(map[string]Definition)}
	for name, def := range defaultEntities() {
		d.Define(name, def)
	}
	return d
}

// Define adds or replaces an entity. Names are case-insensitive.
func (d *Dictionary) Define(name string, def Definition) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entities[strings.ToLower(name)] = def
}

// Names returns the defined entity names, sorted.
func (d *Dictionary) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.entities))
	for name := range d.entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d *Dictionary) lookup(name string) (Definition, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	def, ok := d.entities[strings.ToLower(strings.TrimSpace(name))]
	return def, ok
}

func (d *Dictionary) Describe(ctx context.Context, req DescribeRequest) (DescribeResponse, error) {
	if strings.TrimSpace(req.Entity) == "" {
		return DescribeResponse{}, codec.NewError(codec.StatusInvalidArgument, "entity is required")
	}
	if req.Count < 0 || req.Count > maxSamples {
		return DescribeResponse{}, codec.NewError(codec.StatusOutOfRange, "count must be between 0 and %d", maxSamples)
	}
	if _, ok := d.lookup(req.Entity); !ok {
		return DescribeResponse{}, codec.NewError(codec.StatusNotFound, "entity %s not found", req.Entity)
	}
	return d.describe(req), nil
}

func (d *Dictionary) ListWorkflows(ctx context.Context, req ListWorkflowsRequest) (ListWorkflowsResponse, error) {
	if _, ok := d.lookup(req.Entity); !ok {
		return ListWorkflowsResponse{}, codec.NewError(codec.StatusNotFound, "entity %s not found", req.Entity)
	}
	return d.listWorkflows(req), nil
}

// describe answers without validation, for simulated calls.
func (d *Dictionary) describe(req DescribeRequest) DescribeResponse {
	name := strings.ToLower(strings.TrimSpace(req.Entity))
	def, ok := d.lookup(name)
	if !ok {
		def = Definition{Description: "Undocumented entity"}
	}

	count := min(max(req.Count, 0), maxSamples)
	samples := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		samples = append(samples, fmt.Sprintf("%s-%03d", name, i))
	}

	return DescribeResponse{
		Entity:      name,
		Description: def.Description,
		Fields:      append([]Field(nil), def.Fields...),
		Samples:     samples,
	}
}

func (d *Dictionary) listWorkflows(req ListWorkflowsRequest) ListWorkflowsResponse {
	def, _ := d.lookup(req.Entity)
	return ListWorkflowsResponse{Workflows: append([]Workflow{}, def.Workflows...)}
}

func defaultEntities() map[string]Definition {
	return map[string]Definition{
		"cart": {
			Description: "Items a customer intends to purchase",
			Fields: []Field{
				{Name: "id", Type: "string", Required: true},
				{Name: "customer_id", Type: "string", Required: true},
				{Name: "items", Type: "repeated line_item"},
				{Name: "total", Type: "money"},
			},
			Workflows: []Workflow{
				{Name: "checkout", Steps: []string{"validate", "reserve_stock", "charge", "confirm"}},
				{Name: "abandon", Steps: []string{"notify", "expire"}},
			},
		},
		"order": {
			Description: "A confirmed purchase",
			Fields: []Field{
				{Name: "id", Type: "string", Required: true},
				{Name: "cart_id", Type: "string", Required: true},
				{Name: "status", Type: "enum"},
			},
			Workflows: []Workflow{
				{Name: "fulfil", Steps: []string{"pick", "pack", "ship"}},
				{Name: "refund", Steps: []string{"approve", "credit"}},
			},
		},
		"customer": {
			Description: "A buyer account",
			Fields: []Field{
				{Name: "id", Type: "string", Required: true},
				{Name: "email", Type: "string", Required: true},
				{Name: "tier", Type: "enum"},
			},
			Workflows: []Workflow{
				{Name: "onboard", Steps: []string{"verify_email", "welcome"}},
			},
		},
	}
}
