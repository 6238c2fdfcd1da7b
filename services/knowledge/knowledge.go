// Package knowledge is the client and in-memory server of the vector
// knowledge store used for retrieval.
package knowledge

import (
	"context"
	"fmt"
	"sort"

	"github.com/yhonda-ohishi/grpcweb-bridge/codec"
	"github.com/yhonda-ohishi/grpcweb-bridge/facade"
	"github.com/yhonda-ohishi/grpcweb-bridge/marshal"
	"github.com/yhonda-ohishi/grpcweb-bridge/server"
	"github.com/yhonda-ohishi/grpcweb-bridge/simulate"
)

const (
	ServiceName = "knowledge.v1.KnowledgeService"
	SearchPath  = ServiceName + "/Search"
	UpsertPath  = ServiceName + "/Upsert"
	DeletePath  = ServiceName + "/Delete"
)

// DefaultTopK is used when SearchRequest.TopK is zero.
const DefaultTopK = 5

type Chunk struct {
	ID     string  `json:"id"`
	Text   string  `json:"text"`
	Source string  `json:"source,omitempty"`
	Score  float64 `json:"score,omitempty"`
}

type SearchRequest struct {
	Collection string `json:"collection"`
	Query      string `json:"query"`
	TopK       int    `json:"top_k,omitempty"`
}

type SearchResponse struct {
	Chunks []Chunk `json:"chunks"`
}

type UpsertRequest struct {
	Collection string `json:"collection"`
	Chunk      Chunk  `json:"chunk"`
}

type UpsertResponse struct {
	ID      string `json:"id"`
	Created bool   `json:"created"`
}

type DeleteRequest struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
}

// DeleteResponse is intentionally empty. The server answers Delete with a
// trailers-only reply.
type DeleteResponse struct{}

// Server is implemented by knowledge backends.
type Server interface {
	Search(ctx context.Context, req SearchRequest) (SearchResponse, error)
	Upsert(ctx context.Context, req UpsertRequest) (UpsertResponse, error)
	Delete(ctx context.Context, req DeleteRequest) error
}

// Register exposes s on mux.
func Register(mux *server.Mux, s Server) {
	mux.RegisterHandler(SearchPath, server.MakeHandler(
		marshal.DecodeJSON[SearchRequest], marshal.EncodeJSON[SearchResponse], s.Search))
	mux.RegisterHandler(UpsertPath, server.MakeHandler(
		marshal.DecodeJSON[UpsertRequest], marshal.EncodeJSON[UpsertResponse], s.Upsert))
	mux.RegisterHandler(DeletePath, func(ctx context.Context, r *server.Request) ([]byte, error) {
		req, err := marshal.DecodeJSON[DeleteRequest](r.Message)
		if err != nil {
			return nil, codec.NewError(codec.StatusInvalidArgument, "Failed to deserialize request: %v", err)
		}
		return nil, s.Delete(ctx, req)
	})
}

// Client calls the knowledge service through a facade.
type Client struct {
	search *facade.Operation[SearchRequest, SearchResponse]
	upsert *facade.Operation[UpsertRequest, UpsertResponse]
	delete *facade.Operation[DeleteRequest, DeleteResponse]
}

// NewClient binds the knowledge methods to f. Simulated searches return
// canned chunks with random, descending scores.
func NewClient(f *facade.Facade, opts ...simulate.Option) *Client {
	scores := simulate.NewScore(opts...)
	return &Client{
		search: facade.NewOperation(f, facade.Method[SearchRequest, SearchResponse]{
			Path:   SearchPath,
			Encode: marshal.EncodeJSON[SearchRequest],
			Decode: marshal.DecodeJSON[SearchResponse],
			Simulate: simulate.Func(func(req SearchRequest) SearchResponse {
				return simulatedSearch(req, scores)
			}, opts...),
		}),
		upsert: facade.NewOperation(f, facade.Method[UpsertRequest, UpsertResponse]{
			Path:   UpsertPath,
			Encode: marshal.EncodeJSON[UpsertRequest],
			Decode: marshal.DecodeJSON[UpsertResponse],
			Simulate: simulate.Func(func(req UpsertRequest) UpsertResponse {
				return UpsertResponse{ID: req.Chunk.ID, Created: true}
			}, opts...),
		}),
		delete: facade.NewOperation(f, facade.Method[DeleteRequest, DeleteResponse]{
			Path:       DeletePath,
			Encode:     marshal.EncodeJSON[DeleteRequest],
			Decode:     marshal.DecodeJSON[DeleteResponse],
			Simulate:   simulate.Static[DeleteRequest](DeleteResponse{}, opts...),
			AllowEmpty: true,
		}),
	}
}

func (c *Client) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	return c.search.Call(ctx, req)
}

func (c *Client) Upsert(ctx context.Context, req UpsertRequest) (UpsertResponse, error) {
	return c.upsert.Call(ctx, req)
}

func (c *Client) Delete(ctx context.Context, req DeleteRequest) error {
	_, err := c.delete.Call(ctx, req)
	return err
}

func simulatedSearch(req SearchRequest, scores *simulate.Score) SearchResponse {
	k := req.TopK
	if k <= 0 {
		k = DefaultTopK
	}

	chunks := make([]Chunk, k)
	for i := range chunks {
		chunks[i] = Chunk{
			ID:     fmt.Sprintf("sim-%d", i+1),
			Text:   fmt.Sprintf("Simulated passage %d about %q", i+1, req.Query),
			Source: "simulated",
			Score:  scores.Next(),
		}
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Score > chunks[j].Score })
	return SearchResponse{Chunks: chunks}
}
