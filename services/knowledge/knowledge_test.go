package knowledge

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yhonda-ohishi/grpcweb-bridge/codec"
	"github.com/yhonda-ohishi/grpcweb-bridge/config"
	"github.com/yhonda-ohishi/grpcweb-bridge/facade"
	"github.com/yhonda-ohishi/grpcweb-bridge/server"
	"github.com/yhonda-ohishi/grpcweb-bridge/simulate"
	"github.com/yhonda-ohishi/grpcweb-bridge/transport"
	"github.com/yhonda-ohishi/grpcweb-bridge/unary"
)

func setup(t *testing.T) (*Client, *config.Switch) {
	t.Helper()
	mux := server.NewMux()
	Register(mux, NewStore())
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	settings := config.NewSwitch(config.Config{Endpoint: srv.URL})
	f := facade.New(unary.New(transport.NewHTTP()), settings)
	return NewClient(f, simulate.WithSeed(3)), settings
}

func seed(t *testing.T, client *Client) {
	t.Helper()
	docs := []Chunk{
		{ID: "a", Text: "Refunds are credited within five days", Source: "policy.md"},
		{ID: "b", Text: "Every order ships from the nearest warehouse", Source: "shipping.md"},
		{ID: "c", Text: "Refund requests need an order number", Source: "faq.md"},
	}
	for _, doc := range docs {
		resp, err := client.Upsert(context.Background(), UpsertRequest{Collection: "support", Chunk: doc})
		require.NoError(t, err)
		assert.True(t, resp.Created)
		assert.Equal(t, doc.ID, resp.ID)
	}
}

func TestSearchLive(t *testing.T) {
	client, _ := setup(t)
	seed(t, client)

	resp, err := client.Search(context.Background(), SearchRequest{Collection: "support", Query: "refund order?"})

	require.NoError(t, err)
	require.Len(t, resp.Chunks, 2)
	assert.Equal(t, "c", resp.Chunks[0].ID)
	assert.Equal(t, 1.0, resp.Chunks[0].Score)
	assert.Equal(t, "b", resp.Chunks[1].ID)
	assert.Equal(t, 0.5, resp.Chunks[1].Score)
}

func TestSearchTopK(t *testing.T) {
	client, _ := setup(t)
	seed(t, client)

	resp, err := client.Search(context.Background(), SearchRequest{Collection: "support", Query: "order refund", TopK: 1})
	require.NoError(t, err)
	require.Len(t, resp.Chunks, 1)
	assert.Equal(t, "c", resp.Chunks[0].ID)
}

func TestSearchErrors(t *testing.T) {
	client, _ := setup(t)

	_, err := client.Search(context.Background(), SearchRequest{Collection: "missing", Query: "x"})
	var grpcErr *codec.GRPCError
	require.ErrorAs(t, err, &grpcErr)
	assert.Equal(t, codec.StatusNotFound, grpcErr.Code)

	_, err = client.Search(context.Background(), SearchRequest{Collection: "support"})
	require.ErrorAs(t, err, &grpcErr)
	assert.Equal(t, codec.StatusInvalidArgument, grpcErr.Code)
}

func TestDeleteTrailersOnly(t *testing.T) {
	client, _ := setup(t)
	seed(t, client)

	require.NoError(t, client.Delete(context.Background(), DeleteRequest{Collection: "support", ID: "a"}))

	err := client.Delete(context.Background(), DeleteRequest{Collection: "support", ID: "a"})
	var grpcErr *codec.GRPCError
	require.ErrorAs(t, err, &grpcErr)
	assert.Equal(t, codec.StatusNotFound, grpcErr.Code)
	assert.Equal(t, "chunk a not found in support", grpcErr.Message)
}

func TestUpsertReplaces(t *testing.T) {
	client, _ := setup(t)
	seed(t, client)

	resp, err := client.Upsert(context.Background(), UpsertRequest{
		Collection: "support",
		Chunk:      Chunk{ID: "a", Text: "Refunds take a week"},
	})
	require.NoError(t, err)
	assert.False(t, resp.Created)

	generated, err := client.Upsert(context.Background(), UpsertRequest{
		Collection: "support",
		Chunk:      Chunk{Text: "Gift cards never expire"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, generated.ID)
}

func TestSimulatedSearch(t *testing.T) {
	client, settings := setup(t)
	settings.SetSimulated(true)

	resp, err := client.Search(context.Background(), SearchRequest{Query: "anything", TopK: 4})
	require.NoError(t, err)
	require.Len(t, resp.Chunks, 4)
	for i := 1; i < len(resp.Chunks); i++ {
		assert.GreaterOrEqual(t, resp.Chunks[i-1].Score, resp.Chunks[i].Score)
	}
	assert.Equal(t, "simulated", resp.Chunks[0].Source)

	assert.NoError(t, client.Delete(context.Background(), DeleteRequest{Collection: "nowhere", ID: "x"}))
}
