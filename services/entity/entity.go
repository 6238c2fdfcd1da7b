// Package entity is the client and in-memory server of the business entity
// dictionary: entity definitions and the workflows that act on them.
package entity

import (
	"context"

	"github.com/yhonda-ohishi/grpcweb-bridge/facade"
	"github.com/yhonda-ohishi/grpcweb-bridge/marshal"
	"github.com/yhonda-ohishi/grpcweb-bridge/server"
	"github.com/yhonda-ohishi/grpcweb-bridge/simulate"
)

const (
	ServiceName       = "business.v1.EntityService"
	DescribePath      = ServiceName + "/Describe"
	ListWorkflowsPath = ServiceName + "/ListWorkflows"
)

type DescribeRequest struct {
	Entity string `json:"entity"`
	Count  int    `json:"count,omitempty"`
}

type Field struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required,omitempty"`
}

type DescribeResponse struct {
	Entity      string   `json:"entity"`
	Description string   `json:"description"`
	Fields      []Field  `json:"fields"`
	Samples     []string `json:"samples,omitempty"`
}

type ListWorkflowsRequest struct {
	Entity string `json:"entity"`
}

type Workflow struct {
	Name  string   `json:"name"`
	Steps []string `json:"steps"`
}

type ListWorkflowsResponse struct {
	Workflows []Workflow `json:"workflows"`
}

// Server is implemented by entity backends.
type Server interface {
	Describe(ctx context.Context, req DescribeRequest) (DescribeResponse, error)
	ListWorkflows(ctx context.Context, req ListWorkflowsRequest) (ListWorkflowsResponse, error)
}

// Register exposes s on mux.
func Register(mux *server.Mux, s Server) {
	mux.RegisterHandler(DescribePath, server.MakeHandler(
		marshal.DecodeJSON[DescribeRequest], marshal.EncodeJSON[DescribeResponse], s.Describe))
	mux.RegisterHandler(ListWorkflowsPath, server.MakeHandler(
		marshal.DecodeJSON[ListWorkflowsRequest], marshal.EncodeJSON[ListWorkflowsResponse], s.ListWorkflows))
}

// Client calls the entity service through a facade.
type Client struct {
	describe      *facade.Operation[DescribeRequest, DescribeResponse]
	listWorkflows *facade.Operation[ListWorkflowsRequest, ListWorkflowsResponse]
}

// NewClient binds the entity methods to f. Simulated answers come from the
// built-in dictionary.
func NewClient(f *facade.Facade, opts ...simulate.Option) *Client {
	dict := NewDictionary()
	return &Client{
		describe: facade.NewOperation(f, facade.Method[DescribeRequest, DescribeResponse]{
			Path:     DescribePath,
			Encode:   marshal.EncodeJSON[DescribeRequest],
			Decode:   marshal.DecodeJSON[DescribeResponse],
			Simulate: simulate.Func(dict.describe, opts...),
		}),
		listWorkflows: facade.NewOperation(f, facade.Method[ListWorkflowsRequest, ListWorkflowsResponse]{
			Path:     ListWorkflowsPath,
			Encode:   marshal.EncodeJSON[ListWorkflowsRequest],
			Decode:   marshal.DecodeJSON[ListWorkflowsResponse],
			Simulate: simulate.Func(dict.listWorkflows, opts...),
		}),
	}
}

func (c *Client) Describe(ctx context.Context, req DescribeRequest) (DescribeResponse, error) {
	return c.describe.Call(ctx, req)
}

func (c *Client) ListWorkflows(ctx context.Context, req ListWorkflowsRequest) (ListWorkflowsResponse, error) {
	return c.listWorkflows.Call(ctx, req)
}
