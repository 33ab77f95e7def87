package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"github.com/emberkv/raftcore/internal/raft"
)

func startTestServer(t *testing.T, h *Handlers) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := grpc.NewServer()
	RegisterService(s, h)

	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	return lis.Addr().String()
}

func TestGrpcTransport_SendAppend(t *testing.T) {
	addr := startTestServer(t, &Handlers{
		Append: func(req raft.AppendRequest) raft.AppendResponse {
			return raft.AppendResponse{Status: raft.StatusOK, Term: req.Term, Succeeded: true, LogIndex: 3}
		},
	})

	client := NewGrpcTransport(2 * time.Second)
	defer client.Close()

	resp, err := client.SendAppend(context.Background(), addr, raft.AppendRequest{Term: 5, LeaderID: 1})
	require.NoError(t, err)
	assert.True(t, resp.Succeeded)
	assert.Equal(t, raft.Term(5), resp.Term)
	assert.Equal(t, raft.Index(3), resp.LogIndex)
}

func TestGrpcTransport_SendVote(t *testing.T) {
	addr := startTestServer(t, &Handlers{
		Vote: func(req raft.VoteRequest) raft.VoteResponse {
			return raft.VoteResponse{Status: raft.StatusOK, Term: req.Term, Voted: req.CandidateID == 7}
		},
	})

	client := NewGrpcTransport(2 * time.Second)
	defer client.Close()

	resp, err := client.SendVote(context.Background(), addr, raft.VoteRequest{Term: 1, CandidateID: 7})
	require.NoError(t, err)
	assert.True(t, resp.Voted)
}

func TestGrpcTransport_SendPoll(t *testing.T) {
	addr := startTestServer(t, &Handlers{
		Poll: func(req raft.PollRequest) raft.PollResponse {
			return raft.PollResponse{Status: raft.StatusOK, Term: req.Term, Accepted: true}
		},
	})

	client := NewGrpcTransport(2 * time.Second)
	defer client.Close()

	resp, err := client.SendPoll(context.Background(), addr, raft.PollRequest{Term: 2, CandidateID: 9})
	require.NoError(t, err)
	assert.True(t, resp.Accepted)
}

func TestGrpcTransport_ConnectionReuse(t *testing.T) {
	addr := startTestServer(t, &Handlers{
		Append: func(req raft.AppendRequest) raft.AppendResponse {
			return raft.AppendResponse{Status: raft.StatusOK, Succeeded: true}
		},
	})

	client := NewGrpcTransport(2 * time.Second)
	defer client.Close()

	_, err := client.SendAppend(context.Background(), addr, raft.AppendRequest{})
	require.NoError(t, err)
	_, err = client.SendAppend(context.Background(), addr, raft.AppendRequest{})
	require.NoError(t, err)

	client.mu.Lock()
	n := len(client.conns)
	client.mu.Unlock()
	assert.Equal(t, 1, n, "repeated calls to the same address reuse the cached connection")
}
