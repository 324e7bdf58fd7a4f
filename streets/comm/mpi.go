package comm

import (
	mpi "github.com/sbromberger/gompi"
)

// MPIComm adapts a gompi communicator to the Comm interface. One
// process per rank; rank 0 is the root.
type MPIComm struct {
	comm *mpi.Communicator
	size int
}

// StartMPI initializes the MPI runtime and returns the world
// communicator. Call the returned stop function once, after the
// simulation is done.
func StartMPI() (*MPIComm, func()) {
	mpi.Start(true)
	c := mpi.NewCommunicator(nil)
	return &MPIComm{comm: c, size: mpi.WorldSize()}, mpi.Stop
}

// Rank returns this process's world rank.
func (m *MPIComm) Rank() int {
	return m.comm.Rank()
}

// Size returns the world size.
func (m *MPIComm) Size() int {
	return m.size
}

// Send delivers payload to dest with the given tag.
func (m *MPIComm) Send(payload []byte, dest, tag int) error {
	m.comm.SendBytes(payload, dest, tag)
	return nil
}

// Recv blocks for the next message matching source and tag.
func (m *MPIComm) Recv(source, tag int) ([]byte, Status, error) {
	src := source
	if src == AnySource {
		src = mpi.AnySource
	}
	tg := tag
	if tg == AnyTag {
		tg = mpi.AnyTag
	}
	payload, status := m.comm.RecvBytes(src, tg)
	return payload, Status{Source: status.GetSource(), Tag: status.GetTag()}, nil
}
