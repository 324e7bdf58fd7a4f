package comm

import "sync"

// message is one queued delivery.
type message struct {
	payload []byte
	source  int
	tag     int
}

// Mesh is an in-process transport connecting n ranks through shared
// queues. It backs the local (single-process) distributed mode and the
// end-to-end tests, with the same FIFO-per-(sender,tag) guarantee the
// MPI transport provides.
type Mesh struct {
	size   int
	ranks  []*meshRank
	closed bool
	mu     sync.Mutex
}

// meshRank is one endpoint's inbox.
type meshRank struct {
	mesh  *Mesh
	rank  int
	mu    sync.Mutex
	cond  *sync.Cond
	inbox []message
}

// NewMesh creates a mesh of size ranks.
func NewMesh(size int) *Mesh {
	m := &Mesh{size: size}
	for r := 0; r < size; r++ {
		mr := &meshRank{mesh: m, rank: r}
		mr.cond = sync.NewCond(&mr.mu)
		m.ranks = append(m.ranks, mr)
	}
	return m
}

// Rank returns the Comm endpoint for rank r.
func (m *Mesh) Rank(r int) Comm {
	return m.ranks[r]
}

// Close shuts the mesh down. Blocked Recv calls return ErrClosed;
// subsequent Send calls are dropped.
func (m *Mesh) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	for _, r := range m.ranks {
		r.mu.Lock()
		r.cond.Broadcast()
		r.mu.Unlock()
	}
}

func (m *Mesh) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Rank returns this endpoint's rank.
func (r *meshRank) Rank() int {
	return r.rank
}

// Size returns the number of ranks in the mesh.
func (r *meshRank) Size() int {
	return r.mesh.size
}

// Send appends the payload to the destination's inbox. Sends on a
// closed mesh are silently dropped, mirroring a transport that is
// tearing down.
func (r *meshRank) Send(payload []byte, dest, tag int) error {
	if r.mesh.isClosed() {
		return nil
	}
	// Payloads are copied so a sender reusing its buffer cannot
	// corrupt an in-flight message.
	buf := make([]byte, len(payload))
	copy(buf, payload)

	target := r.mesh.ranks[dest]
	target.mu.Lock()
	target.inbox = append(target.inbox, message{payload: buf, source: r.rank, tag: tag})
	target.cond.Broadcast()
	target.mu.Unlock()
	return nil
}

// Recv blocks until a message matching source and tag is queued, then
// removes and returns the first match. The scan preserves send order
// per (sender, tag).
func (r *meshRank) Recv(source, tag int) ([]byte, Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		for i, msg := range r.inbox {
			if source != AnySource && msg.source != source {
				continue
			}
			if tag != AnyTag && msg.tag != tag {
				continue
			}
			r.inbox = append(r.inbox[:i], r.inbox[i+1:]...)
			return msg.payload, Status{Source: msg.source, Tag: msg.tag}, nil
		}
		if r.mesh.isClosed() {
			return nil, Status{}, ErrClosed
		}
		r.cond.Wait()
	}
}
