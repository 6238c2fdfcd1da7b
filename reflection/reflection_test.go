package reflection

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	_ "google.golang.org/protobuf/types/known/structpb"

	"github.com/yhonda-ohishi/grpcweb-bridge/codec"
	"github.com/yhonda-ohishi/grpcweb-bridge/server"
)

// mockRegistry is a mock implementation of HandlerRegistry for testing
type mockRegistry struct {
	methods []string
}

func (m *mockRegistry) GetRegisteredMethods() []string {
	return m.methods
}

func TestListServicesEmpty(t *testing.T) {
	registry := &mockRegistry{methods: []string{}}
	r := New(registry)

	resp := r.ListServices()

	if len(resp.Services) != 0 {
		t.Errorf("Expected 0 services, got %d", len(resp.Services))
	}
}

func TestListServicesSingleService(t *testing.T) {
	registry := &mockRegistry{
		methods: []string{
			"/business.v1.EntityService/Describe",
			"/business.v1.EntityService/ListWorkflows",
			"/business.v1.EntityService/Archive",
		},
	}
	r := New(registry)

	resp := r.ListServices()

	if len(resp.Services) != 1 {
		t.Fatalf("Expected 1 service, got %d", len(resp.Services))
	}

	svc := resp.Services[0]
	if svc.Name != "business.v1.EntityService" {
		t.Errorf("Expected service name 'business.v1.EntityService', got '%s'", svc.Name)
	}

	// Methods should be sorted
	expectedMethods := []string{"Archive", "Describe", "ListWorkflows"}
	if len(svc.Methods) != len(expectedMethods) {
		t.Fatalf("Expected %d methods, got %d", len(expectedMethods), len(svc.Methods))
	}
	for i, expected := range expectedMethods {
		if svc.Methods[i] != expected {
			t.Errorf("Expected method[%d] = '%s', got '%s'", i, expected, svc.Methods[i])
		}
	}
}

func TestListServicesMultipleServices(t *testing.T) {
	registry := &mockRegistry{
		methods: []string{
			"/llm.v1.CompletionService/Complete",
			"/knowledge.v1.KnowledgeService/Search",
			"/knowledge.v1.KnowledgeService/Delete",
		},
	}
	r := New(registry)

	resp := r.ListServices()

	if len(resp.Services) != 2 {
		t.Fatalf("Expected 2 services, got %d", len(resp.Services))
	}

	// Services should be sorted by name
	if resp.Services[0].Name != "knowledge.v1.KnowledgeService" {
		t.Errorf("Expected first service 'knowledge.v1.KnowledgeService', got '%s'", resp.Services[0].Name)
	}
	if resp.Services[1].Name != "llm.v1.CompletionService" {
		t.Errorf("Expected second service 'llm.v1.CompletionService', got '%s'", resp.Services[1].Name)
	}
	if len(resp.Services[0].Methods) != 2 {
		t.Errorf("Expected 2 methods for KnowledgeService, got %d", len(resp.Services[0].Methods))
	}
}

func TestListServicesSkipsReflectionAndMalformed(t *testing.T) {
	registry := &mockRegistry{
		methods: []string{
			"/mypackage.MyService/GetUser",
			MethodPath,
			FileContainingSymbolPath,
			"/nomethod",
			"/too/many/parts",
		},
	}
	r := New(registry)

	resp := r.ListServices()

	if len(resp.Services) != 1 {
		t.Fatalf("Expected 1 service, got %d: %+v", len(resp.Services), resp.Services)
	}
	if resp.Services[0].Name != "mypackage.MyService" {
		t.Errorf("Expected 'mypackage.MyService', got '%s'", resp.Services[0].Name)
	}
}

func TestHandlerOverMux(t *testing.T) {
	mux := server.NewMux()
	noop := func(ctx context.Context, req *server.Request) ([]byte, error) { return nil, nil }
	mux.RegisterHandler("/test.TestService/TestMethod", noop)
	Register(mux)

	body := mux.Handle(context.Background(), &server.Request{Path: MethodPath})
	message, trailer := codec.Decode(body)

	if outcome := codec.Evaluate(trailer); !outcome.OK {
		t.Fatalf("Expected OK, got %+v", outcome)
	}

	var listResp ListServicesResponse
	if err := json.Unmarshal(message, &listResp); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if len(listResp.Services) != 1 || listResp.Services[0].Name != "test.TestService" {
		t.Errorf("Unexpected services: %+v", listResp.Services)
	}
}

func TestFileContainingSymbol(t *testing.T) {
	r := New(&mockRegistry{})

	for _, symbol := range []string{"google.protobuf.Struct", "google.protobuf.Struct.fields"} {
		resp, err := r.FileContainingSymbol(symbol)
		if err != nil {
			t.Fatalf("FileContainingSymbol(%q) failed: %v", symbol, err)
		}

		data, err := base64.StdEncoding.DecodeString(resp.FileDescriptorProto)
		if err != nil {
			t.Fatalf("Invalid base64: %v", err)
		}
		var fd descriptorpb.FileDescriptorProto
		if err := proto.Unmarshal(data, &fd); err != nil {
			t.Fatalf("Invalid FileDescriptorProto: %v", err)
		}
		if fd.GetName() != "google/protobuf/struct.proto" {
			t.Errorf("Expected google/protobuf/struct.proto, got %q", fd.GetName())
		}
	}
}

func TestFileContainingSymbolHandler(t *testing.T) {
	mux := server.NewMux()
	Register(mux, WithFiles(protoregistry.GlobalFiles))

	tests := []struct {
		name    string
		message string
		code    int
	}{
		{name: "found", message: `{"symbol":"google.protobuf.Struct"}`, code: codec.StatusOK},
		{name: "empty symbol", message: `{}`, code: codec.StatusInvalidArgument},
		{name: "unknown symbol", message: `{"symbol":"nope.Missing"}`, code: codec.StatusNotFound},
		{name: "bad json", message: `{`, code: codec.StatusInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := mux.Handle(context.Background(), &server.Request{
				Path:    FileContainingSymbolPath,
				Message: []byte(tt.message),
			})
			message, trailer := codec.Decode(body)
			outcome := codec.Evaluate(trailer)
			if outcome.Code != tt.code {
				t.Fatalf("Expected code %d, got %d (%s)", tt.code, outcome.Code, outcome.Message)
			}
			if tt.code == codec.StatusOK {
				var resp FileContainingSymbolResponse
				if err := json.Unmarshal(message, &resp); err != nil || resp.FileDescriptorProto == "" {
					t.Errorf("Expected descriptor, got %s (%v)", message, err)
				}
			}
		})
	}
}

func TestFileContainingSymbolEmptyRegistry(t *testing.T) {
	r := New(&mockRegistry{}, WithFiles(new(protoregistry.Files)))

	if _, err := r.FileContainingSymbol("google.protobuf.Struct"); err == nil {
		t.Error("Expected lookup in an empty registry to fail")
	}
}
