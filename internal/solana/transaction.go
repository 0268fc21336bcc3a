package solana

import (
	"encoding/binary"
	"errors"
)

// systemTransferIx is the System Program instruction index for Transfer.
const systemTransferIx = 2

var ErrSelfTransfer = errors.New("sender and receiver are the same account")

// BuildTransfer returns a signed legacy transaction moving lamports from
// the keypair's account to to using the System Program.
func BuildTransfer(from *Keypair, to [32]byte, lamports uint64, blockhash [32]byte) ([]byte, error) {
	fromPub := from.PublicKey()
	if fromPub == to {
		return nil, ErrSelfTransfer
	}

	msg := transferMessage(fromPub, to, lamports, blockhash)
	sig := from.Sign(msg)

	tx := make([]byte, 0, 1+len(sig)+len(msg))
	tx = appendCompactU16(tx, 1)
	tx = append(tx, sig...)
	tx = append(tx, msg...)
	return tx, nil
}

func transferMessage(from, to [32]byte, lamports uint64, blockhash [32]byte) []byte {
	var systemProgram [32]byte

	// header: 1 signer, 0 readonly signed, 1 readonly unsigned (system program)
	msg := []byte{1, 0, 1}

	msg = appendCompactU16(msg, 3)
	msg = append(msg, from[:]...)
	msg = append(msg, to[:]...)
	msg = append(msg, systemProgram[:]...)

	msg = append(msg, blockhash[:]...)

	data := binary.LittleEndian.AppendUint32(nil, systemTransferIx)
	data = binary.LittleEndian.AppendUint64(data, lamports)

	msg = appendCompactU16(msg, 1)
	msg = append(msg, 2)
	msg = appendCompactU16(msg, 2)
	msg = append(msg, 0, 1)
	msg = appendCompactU16(msg, len(data))
	msg = append(msg, data...)
	return msg
}

// appendCompactU16 writes the shortvec length encoding used by the wire
// format: 7 bits per byte, high bit set on all but the last.
func appendCompactU16(b []byte, n int) []byte {
	v := uint16(n)
	for {
		if v < 0x80 {
			return append(b, byte(v))
		}
		b = append(b, byte(v&0x7f)|0x80)
		v >>= 7
	}
}
