// Command msgdump decodes a serialized protocol message and prints its
// fields. It is a debugging aid for inspecting captured ciphertext without
// any key material; MACs and signatures are reported as present, not
// verified.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/openratchet/protocol/pkg/protocol"
)

var (
	messageType = flag.String("type", "whisper", "Message type: whisper, prekey, senderkey, distribution")
	inputPath   = flag.String("in", "-", "Input file containing hex-encoded message bytes, or - for stdin")
)

func main() {
	flag.Parse()

	value, err := readInput(*inputPath)
	if err != nil {
		log.Fatalf("Failed to read input: %v", err)
	}

	switch *messageType {
	case "whisper":
		dumpSignalMessage(value)
	case "prekey":
		dumpPreKeyMessage(value)
	case "senderkey":
		dumpSenderKeyMessage(value)
	case "distribution":
		dumpDistributionMessage(value)
	default:
		log.Fatalf("Unknown message type %q", *messageType)
	}
}

func readInput(path string) ([]byte, error) {
	var raw []byte
	var err error
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	return hex.DecodeString(strings.TrimSpace(string(raw)))
}

func dumpSignalMessage(value []byte) {
	message, err := protocol.ParseSignalMessage(value)
	if err != nil {
		log.Fatalf("Failed to parse message: %v", err)
	}

	fmt.Println("SignalMessage")
	fmt.Printf("  version:          %d\n", message.MessageVersion())
	fmt.Printf("  ratchet key:      %x\n", message.SenderRatchetKey().Serialize())
	fmt.Printf("  counter:          %d\n", message.Counter())
	fmt.Printf("  previous counter: %d\n", message.PreviousCounter())
	fmt.Printf("  ciphertext:       %d bytes\n", len(message.Body()))
	fmt.Printf("  mac:              %x (unverified)\n", value[len(value)-protocol.MacLength:])
}

func dumpPreKeyMessage(value []byte) {
	message, err := protocol.ParsePreKeySignalMessage(value)
	if err != nil {
		log.Fatalf("Failed to parse message: %v", err)
	}

	fmt.Println("PreKeySignalMessage")
	fmt.Printf("  version:          %d\n", message.MessageVersion())
	fmt.Printf("  registration id:  %d\n", message.RegistrationID())
	if id := message.PreKeyID(); id != nil {
		fmt.Printf("  pre-key id:       %d\n", *id)
	} else {
		fmt.Printf("  pre-key id:       (none)\n")
	}
	fmt.Printf("  signed pre-key:   %d\n", message.SignedPreKeyID())
	fmt.Printf("  base key:         %x\n", message.BaseKey().Serialize())
	fmt.Printf("  identity key:     %x\n", message.IdentityKey().Serialize())
	fmt.Printf("  inner message:    %d bytes\n", len(message.Message().Serialized()))
}

func dumpSenderKeyMessage(value []byte) {
	message, err := protocol.ParseSenderKeyMessage(value)
	if err != nil {
		log.Fatalf("Failed to parse message: %v", err)
	}

	fmt.Println("SenderKeyMessage")
	fmt.Printf("  version:          %d\n", message.MessageVersion())
	fmt.Printf("  distribution id:  %s\n", message.DistributionID())
	fmt.Printf("  chain id:         %d\n", message.ChainID())
	fmt.Printf("  iteration:        %d\n", message.Iteration())
	fmt.Printf("  ciphertext:       %d bytes\n", len(message.Ciphertext()))
	fmt.Printf("  signature:        present (unverified)\n")
}

func dumpDistributionMessage(value []byte) {
	message, err := protocol.ParseSenderKeyDistributionMessage(value)
	if err != nil {
		log.Fatalf("Failed to parse message: %v", err)
	}

	fmt.Println("SenderKeyDistributionMessage")
	fmt.Printf("  version:          %d\n", message.MessageVersion())
	fmt.Printf("  distribution id:  %s\n", message.DistributionID())
	fmt.Printf("  chain id:         %d\n", message.ChainID())
	fmt.Printf("  iteration:        %d\n", message.Iteration())
	fmt.Printf("  chain key:        %x\n", message.ChainKey())
	fmt.Printf("  signing key:      %x\n", message.SigningKey().Serialize())
}
