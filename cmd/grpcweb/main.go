// Command grpcweb calls and serves gRPC-Web services over HTTP and WebRTC.
package main

func main() {
	Execute()
}
