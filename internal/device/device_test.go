package device

import (
	"errors"
	"testing"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Kind
		wantErr bool
	}{
		{name: "cpu", input: "cpu", want: CPU},
		{name: "cuda", input: "cuda", want: CUDA},
		{name: "mps", input: "mps", want: MPS},
		{name: "unknown", input: "tpu", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "case sensitive", input: "CPU", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKind(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseKind(%q) expected error, got %s", tt.input, got)
				}
				if !errors.Is(err, ErrUnknownKind) {
					t.Errorf("error = %v, want ErrUnknownKind", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseKind(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseKind(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestDetect_CPUAlwaysAvailable(t *testing.T) {
	avail := Detect()
	if !avail[CPU] {
		t.Error("cpu must always be available")
	}
}

func TestDetect_Cached(t *testing.T) {
	first := Detect()
	second := Detect()
	for _, k := range Kinds() {
		if first[k] != second[k] {
			t.Errorf("Detect() not stable for %s: %v then %v", k, first[k], second[k])
		}
	}
}

func TestAvailability_Best(t *testing.T) {
	tests := []struct {
		name  string
		avail Availability
		want  Kind
	}{
		{name: "cpu only", avail: Availability{CPU: true}, want: CPU},
		{name: "prefers cuda", avail: Availability{CPU: true, CUDA: true}, want: CUDA},
		{name: "prefers mps over cpu", avail: Availability{CPU: true, MPS: true}, want: MPS},
		{name: "cuda beats mps", avail: Availability{CPU: true, CUDA: true, MPS: true}, want: CUDA},
		{name: "empty falls back to cpu", avail: Availability{}, want: CPU},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.avail.Best(); got != tt.want {
				t.Errorf("Best() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAvailability_Available(t *testing.T) {
	avail := Availability{CPU: true, CUDA: true}
	got := avail.Available()
	if len(got) != 2 {
		t.Fatalf("Available() returned %d kinds, want 2", len(got))
	}
	if got[0] != CUDA || got[1] != CPU {
		t.Errorf("Available() = %v, want [cuda cpu]", got)
	}
}
