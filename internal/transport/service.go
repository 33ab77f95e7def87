package transport

import (
	"context"

	"google.golang.org/grpc"

	"github.com/emberkv/raftcore/internal/raft"
)

// Handlers is the set of callbacks the inbound service dispatches every
// decoded RPC to, bound to one node's Context/Log/Applier.
type Handlers struct {
	Append func(raft.AppendRequest) raft.AppendResponse
	Poll   func(raft.PollRequest) raft.PollResponse
	Vote   func(raft.VoteRequest) raft.VoteResponse
}

func appendHandler(srv interface{}, _ context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
	h := srv.(*Handlers)
	var req raft.AppendRequest
	if err := dec(&req); err != nil {
		return nil, err
	}
	resp := h.Append(req)
	return &resp, nil
}

func pollHandler(srv interface{}, _ context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
	h := srv.(*Handlers)
	var req raft.PollRequest
	if err := dec(&req); err != nil {
		return nil, err
	}
	resp := h.Poll(req)
	return &resp, nil
}

func voteHandler(srv interface{}, _ context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
	h := srv.(*Handlers)
	var req raft.VoteRequest
	if err := dec(&req); err != nil {
		return nil, err
	}
	resp := h.Vote(req)
	return &resp, nil
}

// ServiceDesc is a hand-built grpc.ServiceDesc standing in for what a
// protoc-generated *_grpc.pb.go would normally provide: three unary
// methods dispatching through Handlers, addressed at the method paths
// GrpcTransport's outbound client invokes.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "raftcore.Raft",
	HandlerType: (*Handlers)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Append", Handler: appendHandler},
		{MethodName: "Poll", Handler: pollHandler},
		{MethodName: "Vote", Handler: voteHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "raftcore/transport",
}

// RegisterService registers h on s under ServiceDesc.
func RegisterService(s *grpc.Server, h *Handlers) {
	s.RegisterService(&ServiceDesc, h)
}
