package srv

import "testing"

func bankOf(letters string) *Bank {
	var b Bank
	for _, l := range letters {
		b.Append(l)
	}
	return &b
}

func TestBankCapacity(t *testing.T) {
	var b Bank
	for i := 0; i < BankCapacity; i++ {
		if !b.Append('A') {
			t.Fatalf("append %d refused below capacity", i)
		}
	}
	if b.Append('A') {
		t.Error("expected append beyond capacity to fail")
	}
	if b.Len() != BankCapacity {
		t.Errorf("len = %d, want %d", b.Len(), BankCapacity)
	}
}

func TestBankRemoveKeepsOrder(t *testing.T) {
	b := bankOf("ABCDE")
	if !b.Remove([]int{1, 3}) {
		t.Fatal("expected remove to succeed")
	}
	got := b.View()
	want := []string{"A", "C", "E"}
	if len(got) != len(want) {
		t.Fatalf("remaining = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("remaining[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestBankRemoveRejectsBadIndices(t *testing.T) {
	tests := []struct {
		name    string
		indices []int
	}{
		{"duplicate", []int{0, 0}},
		{"out of range", []int{0, 9}},
		{"negative", []int{-1}},
	}
	for _, tt := range tests {
		b := bankOf("ABC")
		if b.Remove(tt.indices) {
			t.Errorf("%s: expected remove to fail", tt.name)
		}
		if b.Len() != 3 {
			t.Errorf("%s: bank modified on failed remove", tt.name)
		}
	}
}

func TestBankSpells(t *testing.T) {
	b := bankOf("CAT")
	tests := []struct {
		word    string
		indices []int
		ok      bool
	}{
		{"CAT", []int{0, 1, 2}, true},
		{"ACT", []int{1, 0, 2}, true},
		{"CAT", []int{0, 2, 1}, false}, // order matters
		{"CAT", []int{0, 1}, false},    // length mismatch
		{"CC", []int{0, 0}, false},     // indices must be distinct
		{"CAT", []int{0, 1, 9}, false}, // out of range
	}
	for _, tt := range tests {
		if got := b.Spells(tt.word, tt.indices); got != tt.ok {
			t.Errorf("Spells(%q, %v) = %v, want %v", tt.word, tt.indices, got, tt.ok)
		}
	}
}

func TestBankFindIndices(t *testing.T) {
	b := bankOf("AAB")
	indices, ok := b.FindIndices("AB")
	if !ok {
		t.Fatal("expected AB to be spellable from AAB")
	}
	if !b.Spells("AB", indices) {
		t.Errorf("reconstructed indices %v do not spell AB", indices)
	}
	if _, ok := b.FindIndices("ABB"); ok {
		t.Error("expected ABB to be unspellable from AAB")
	}
	if _, ok := b.FindIndices("C"); ok {
		t.Error("expected C to be unspellable from AAB")
	}
}
