package discriminator

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"

	aerrors "github.com/lugondev/go-anvil/pkg/errors"
	"github.com/lugondev/go-anvil/pkg/view"
)

type Counter struct {
	Count uint64
}

type Vault struct {
	Balance uint64
}

type pinned struct{}

func (pinned) Discriminator() Discriminator {
	return Discriminator{1, 2, 3, 4, 5, 6, 7, 8}
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Discriminator
	}{
		{"Counter", "Counter", Discriminator{167, 140, 253, 244, 172, 252, 41, 66}},
		{"Vault", "Vault", Discriminator{93, 85, 196, 21, 227, 86, 221, 123}},
		{"Position", "Position", Discriminator{109, 3, 26, 241, 13, 167, 162, 94}},
		{"InitializeCounter", "InitializeCounter", Discriminator{166, 120, 214, 131, 199, 35, 37, 80}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compute(tt.input); got != tt.expected {
				t.Errorf("Compute(%q) = %v, want %v", tt.input, got[:], tt.expected[:])
			}
		})
	}
}

func TestComputeIsCaseSensitive(t *testing.T) {
	if Compute("Counter") == Compute("counter") {
		t.Error("expected distinct tags for differently cased names")
	}
}

func TestOf(t *testing.T) {
	if got := Of[Counter](); got != Compute("Counter") {
		t.Errorf("Of[Counter] = %s, want %s", got, Compute("Counter"))
	}
	if got := Of[Vault](); got != Compute("Vault") {
		t.Errorf("Of[Vault] = %s, want %s", got, Compute("Vault"))
	}
	if got := Of[pinned](); got != (Discriminator{1, 2, 3, 4, 5, 6, 7, 8}) {
		t.Errorf("Of[pinned] = %s, want override", got)
	}
	// cached path
	if Of[Counter]() != Of[Counter]() {
		t.Error("expected stable tag")
	}
}

func TestString(t *testing.T) {
	if got := Compute("Counter").String(); got != "a78cfdf4acfc2942" {
		t.Errorf("String() = %s", got)
	}
}

func recordWithData(data []byte) view.AccountView {
	rec := make([]byte, view.HeaderLen+len(data)+view.MaxPermittedDataIncrease)
	rec[0] = view.NonDupMarker
	copy(rec[view.OffsetOwner:], solana.SystemProgramID[:])
	binary.LittleEndian.PutUint64(rec[view.OffsetDataLen:], uint64(len(data)))
	copy(rec[view.OffsetData:], data)
	return view.NewUnchecked(rec)
}

func TestRead(t *testing.T) {
	disc := Compute("Counter")
	v := recordWithData(append(disc[:], 0, 0, 0, 0, 0, 0, 0, 0))

	got, err := Read(v)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != disc {
		t.Errorf("Read = %s, want %s", got, disc)
	}
	if ReadUnchecked(v) != disc {
		t.Error("ReadUnchecked disagrees with Read")
	}
}

func TestReadShortData(t *testing.T) {
	v := recordWithData([]byte{1, 2, 3})

	if _, err := Read(v); !aerrors.Is(err, aerrors.ErrDiscriminatorMismatch) {
		t.Errorf("expected DiscriminatorMismatch, got %v", err)
	}
}
