package process

// Send enqueues a message on the destination process's mailbox, tagged with
// the current process's PID. It fails when there is no current process, when
// the destination does not exist, or when the destination's mailbox already
// holds MaxMessages entries.
func (t *Table) Send(destPID uint32, value uint32) error {
	if t.current == nil {
		t.out.Puts("[IPC] ERROR: no current process\n")
		return ErrNoCurrentProcess
	}

	dest := t.Get(destPID)
	if dest == nil {
		t.out.Puts("[IPC] ERROR: invalid destination PID\n")
		return ErrNotFound
	}

	if dest.msgCount >= MaxMessages {
		t.out.Puts("[IPC] ERROR: message queue full\n")
		return ErrMailboxFull
	}

	dest.msgQueue[dest.msgCount] = Message{
		SenderPID: t.current.PID,
		Value:     value,
	}
	dest.msgCount++

	t.out.Puts("[IPC] message sent from PID ")
	t.out.PutNum(t.current.PID)
	t.out.Puts(" to PID ")
	t.out.PutNum(destPID)
	t.out.Puts("\n")

	return nil
}

// Receive dequeues the head of the current process's mailbox and returns its
// value. Receive does not block: an empty mailbox is an error, and polling
// callers must back off themselves.
func (t *Table) Receive() (uint32, error) {
	if t.current == nil {
		t.out.Puts("[IPC] ERROR: no current process\n")
		return 0, ErrNoCurrentProcess
	}

	if t.current.msgCount == 0 {
		t.out.Puts("[IPC] no message available\n")
		return 0, ErrMailboxEmpty
	}

	value := t.current.msgQueue[0].Value

	for i := uint32(1); i < t.current.msgCount; i++ {
		t.current.msgQueue[i-1] = t.current.msgQueue[i]
	}
	t.current.msgCount--

	t.out.Puts("[IPC] received message value=")
	t.out.PutNum(value)
	t.out.Puts("\n")

	return value, nil
}
