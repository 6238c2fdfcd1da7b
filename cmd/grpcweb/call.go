package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/yhonda-ohishi/grpcweb-bridge/codec"
	"github.com/yhonda-ohishi/grpcweb-bridge/marshal"
	"github.com/yhonda-ohishi/grpcweb-bridge/transport"
	"github.com/yhonda-ohishi/grpcweb-bridge/unary"
)

var callFlags struct {
	Proto      bool
	AllowEmpty bool
	Headers    map[string]string
}

var callCmd = &cobra.Command{
	Use:   "call <package.Service/Method> [json]",
	Short: "Send one unary call and print the response",
	Long: `Send one unary call to the configured endpoint.

The request is a JSON document given as the second argument, or read from
stdin when the argument is "-" or missing. With --proto the document is
sent as a google.protobuf.Struct in binary protobuf form.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		method := args[0]
		doc, err := readDocument(cmd.InOrStdin(), args[1:])
		if err != nil {
			return err
		}

		opts := []unary.Option{
			unary.WithLogger(logger),
			unary.WithTimeout(cfg.Timeout),
		}
		for key, value := range callFlags.Headers {
			opts = append(opts, unary.WithHeader(key, value))
		}
		exec := unary.New(transport.NewHTTP(transport.WithLogger(logger)), opts...)

		var callOpts []unary.CallOption
		if callFlags.AllowEmpty {
			callOpts = append(callOpts, unary.AllowEmpty())
		}

		var out any
		if callFlags.Proto {
			out, err = callProto(cmd, exec, method, doc, callOpts)
		} else {
			out, err = unary.Call(cmd.Context(), exec, settings.EndpointBase(), method,
				json.RawMessage(doc), marshal.EncodeJSON[json.RawMessage], marshal.DecodeJSON[json.RawMessage], callOpts...)
		}
		if err != nil {
			return describeError(err)
		}
		return printJSON(cmd.OutOrStdout(), out)
	},
}

func init() {
	callCmd.Flags().BoolVar(&callFlags.Proto, "proto", false, "send the request as a binary google.protobuf.Struct")
	callCmd.Flags().BoolVar(&callFlags.AllowEmpty, "allow-empty", false, "accept a trailers-only success")
	callCmd.Flags().StringToStringVarP(&callFlags.Headers, "header", "H", nil, "extra request header (key=value)")
}

func callProto(cmd *cobra.Command, exec *unary.Executor, method string, doc []byte, opts []unary.CallOption) (any, error) {
	var fields map[string]any
	if err := json.Unmarshal(doc, &fields); err != nil {
		return nil, fmt.Errorf("request must be a JSON object: %w", err)
	}
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}

	resp, err := unary.Call(cmd.Context(), exec, settings.EndpointBase(), method, req,
		marshal.EncodeProto[*structpb.Struct],
		marshal.DecodeProto(func() *structpb.Struct { return &structpb.Struct{} }),
		opts...)
	if err != nil {
		return nil, err
	}
	return resp.AsMap(), nil
}

func readDocument(stdin io.Reader, args []string) ([]byte, error) {
	var doc []byte
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read request: %w", err)
		}
		doc = data
	} else {
		doc = []byte(args[0])
	}

	doc = bytes.TrimSpace(doc)
	if len(doc) == 0 {
		doc = []byte("{}")
	}
	if !json.Valid(doc) {
		return nil, errors.New("request is not valid JSON")
	}
	return doc, nil
}

// describeError spells out the gRPC status of a failed call.
func describeError(err error) error {
	var grpcErr *codec.GRPCError
	if errors.As(err, &grpcErr) {
		return fmt.Errorf("%s: %s", codec.StatusName(grpcErr.Code), grpcErr.Message)
	}
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
