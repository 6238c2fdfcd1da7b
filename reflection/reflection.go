// Package reflection provides gRPC Server Reflection support.
//
// This is a simplified implementation that lets clients query the services
// and methods registered on a server.Mux, and fetch the FileDescriptorProto
// of a symbol from the protobuf registry. Replies are JSON messages.
//
// # Usage
//
//	mux := server.NewMux()
//	reflection.Register(mux)
//
//	// Register your handlers
//	mux.RegisterHandler("/mypackage.MyService/MyMethod", handler)
package reflection

import (
	"context"
	"encoding/base64"
	"errors"
	"sort"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"

	"github.com/yhonda-ohishi/grpcweb-bridge/codec"
	"github.com/yhonda-ohishi/grpcweb-bridge/marshal"
	"github.com/yhonda-ohishi/grpcweb-bridge/server"
)

// MethodPath is the path for the ListServices method
const MethodPath = "/grpc.reflection.v1alpha.ServerReflection/ListServices"

// FileContainingSymbolPath is the path for the FileContainingSymbol method
const FileContainingSymbolPath = "/grpc.reflection.v1alpha.ServerReflection/FileContainingSymbol"

// ServiceInfo contains information about a registered service
type ServiceInfo struct {
	Name    string   `json:"name"`
	Methods []string `json:"methods"`
}

// ListServicesResponse is the response for ListServices
type ListServicesResponse struct {
	Services []ServiceInfo `json:"services"`
}

// FileContainingSymbolRequest is the request for FileContainingSymbol
type FileContainingSymbolRequest struct {
	Symbol string `json:"symbol"`
}

// FileContainingSymbolResponse is the response for FileContainingSymbol
type FileContainingSymbolResponse struct {
	FileDescriptorProto string `json:"fileDescriptorProto"` // base64 encoded
}

// HandlerRegistry is an interface for getting registered handlers
type HandlerRegistry interface {
	// GetRegisteredMethods returns all registered method paths
	GetRegisteredMethods() []string
}

// Reflection provides server reflection functionality
type Reflection struct {
	registry HandlerRegistry
	files    *protoregistry.Files
}

// Option configures a Reflection.
type Option func(*Reflection)

// WithFiles resolves symbols in files instead of the global registry.
func WithFiles(files *protoregistry.Files) Option {
	return func(r *Reflection) {
		r.files = files
	}
}

// New creates a new Reflection instance
func New(registry HandlerRegistry, opts ...Option) *Reflection {
	r := &Reflection{
		registry: registry,
		files:    protoregistry.GlobalFiles,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register creates a Reflection over mux and registers its handlers there.
func Register(mux *server.Mux, opts ...Option) *Reflection {
	r := New(mux, opts...)
	mux.RegisterHandler(MethodPath, r.Handler())
	mux.RegisterHandler(FileContainingSymbolPath, r.FileContainingSymbolHandler())
	return r
}

// ListServices returns information about all registered services
func (r *Reflection) ListServices() *ListServicesResponse {
	serviceMap := make(map[string][]string)

	for _, method := range r.registry.GetRegisteredMethods() {
		// Skip reflection service itself
		if strings.HasPrefix(method, "/grpc.reflection.") {
			continue
		}

		// Parse method path: /package.Service/Method
		serviceName, methodName, ok := strings.Cut(strings.TrimPrefix(method, "/"), "/")
		if !ok || serviceName == "" || methodName == "" || strings.Contains(methodName, "/") {
			continue
		}

		serviceMap[serviceName] = append(serviceMap[serviceName], methodName)
	}

	services := make([]ServiceInfo, 0, len(serviceMap))
	for name, methods := range serviceMap {
		sort.Strings(methods)
		services = append(services, ServiceInfo{
			Name:    name,
			Methods: methods,
		})
	}

	// Sort services by name for consistent output
	sort.Slice(services, func(i, j int) bool {
		return services[i].Name < services[j].Name
	})

	return &ListServicesResponse{
		Services: services,
	}
}

// Handler returns a handler for the ListServices method
func (r *Reflection) Handler() server.Handler {
	return server.MakeHandler(
		func([]byte) (struct{}, error) { return struct{}{}, nil },
		marshal.EncodeJSON[*ListServicesResponse],
		func(ctx context.Context, _ struct{}) (*ListServicesResponse, error) {
			return r.ListServices(), nil
		},
	)
}

// FileContainingSymbol returns the FileDescriptorProto for a given symbol name.
// The symbol can be a fully qualified service name (e.g., "mypackage.MyService")
// or a method name (e.g., "mypackage.MyService.MyMethod").
func (r *Reflection) FileContainingSymbol(symbol string) (*FileContainingSymbolResponse, error) {
	desc, err := r.files.FindDescriptorByName(protoreflect.FullName(symbol))
	if err != nil {
		return nil, err
	}

	fileDesc := desc.ParentFile()
	if fileDesc == nil {
		return nil, protoregistry.NotFound
	}

	data, err := proto.Marshal(protodesc.ToFileDescriptorProto(fileDesc))
	if err != nil {
		return nil, err
	}

	return &FileContainingSymbolResponse{
		FileDescriptorProto: base64.StdEncoding.EncodeToString(data),
	}, nil
}

// FileContainingSymbolHandler returns a handler for the FileContainingSymbol method
func (r *Reflection) FileContainingSymbolHandler() server.Handler {
	return server.MakeHandler(
		marshal.DecodeJSON[FileContainingSymbolRequest],
		marshal.EncodeJSON[*FileContainingSymbolResponse],
		func(ctx context.Context, req FileContainingSymbolRequest) (*FileContainingSymbolResponse, error) {
			if req.Symbol == "" {
				return nil, codec.NewError(codec.StatusInvalidArgument, "symbol is required")
			}

			resp, err := r.FileContainingSymbol(req.Symbol)
			if errors.Is(err, protoregistry.NotFound) {
				return nil, codec.NewError(codec.StatusNotFound, "symbol not found: %s", req.Symbol)
			}
			if err != nil {
				return nil, codec.NewError(codec.StatusInternal, "internal error: %v", err)
			}
			return resp, nil
		},
	)
}
