package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/emberkv/raftcore/internal/raft"
)

// GrpcTransport sends outbound consensus RPCs to peers over gRPC, caching
// one client connection per peer address.
type GrpcTransport struct {
	mu      sync.Mutex
	conns   map[string]*grpc.ClientConn
	timeout time.Duration
}

// NewGrpcTransport creates a GrpcTransport that bounds each outbound call
// to timeout.
func NewGrpcTransport(timeout time.Duration) *GrpcTransport {
	return &GrpcTransport{
		conns:   make(map[string]*grpc.ClientConn),
		timeout: timeout,
	}
}

func (t *GrpcTransport) connFor(addr string) (*grpc.ClientConn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if c, ok := t.conns[addr]; ok {
		return c, nil
	}
	c, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}
	t.conns[addr] = c
	return c, nil
}

func (t *GrpcTransport) invoke(ctx context.Context, addr, method string, req, resp interface{}) error {
	conn, err := t.connFor(addr)
	if err != nil {
		return err
	}
	cctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return conn.Invoke(cctx, method, req, resp, grpc.CallContentSubtype(CodecName))
}

// SendAppend delivers req to the peer at addr.
func (t *GrpcTransport) SendAppend(ctx context.Context, addr string, req raft.AppendRequest) (raft.AppendResponse, error) {
	var resp raft.AppendResponse
	err := t.invoke(ctx, addr, "/raftcore.Raft/Append", &req, &resp)
	return resp, err
}

// SendPoll delivers req to the peer at addr.
func (t *GrpcTransport) SendPoll(ctx context.Context, addr string, req raft.PollRequest) (raft.PollResponse, error) {
	var resp raft.PollResponse
	err := t.invoke(ctx, addr, "/raftcore.Raft/Poll", &req, &resp)
	return resp, err
}

// SendVote delivers req to the peer at addr.
func (t *GrpcTransport) SendVote(ctx context.Context, addr string, req raft.VoteRequest) (raft.VoteResponse, error) {
	var resp raft.VoteResponse
	err := t.invoke(ctx, addr, "/raftcore.Raft/Vote", &req, &resp)
	return resp, err
}

// Close tears down every cached outbound connection.
func (t *GrpcTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for addr, c := range t.conns {
		if err := c.Close(); err != nil {
			return fmt.Errorf("transport: close %s: %w", addr, err)
		}
	}
	return nil
}
