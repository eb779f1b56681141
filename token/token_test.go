package token

import (
	"sync"
	"testing"
)

func TestTable_Literal(t *testing.T) {
	tokens := NewTable()

	a := tokens.Literal("eth")
	b := tokens.Literal("eth")
	c := tokens.Literal("ipv4")

	if a != b {
		t.Fatalf("same name interned twice: %d != %d", a, b)
	}
	if a == c {
		t.Fatal("different names share a token")
	}
	if a == Null {
		t.Fatal("non-empty name must not be Null")
	}
	if tokens.Literal("") != Null {
		t.Fatal("empty name must be Null")
	}
	if got := tokens.String(c); got != "ipv4" {
		t.Fatalf("String = %q, want ipv4", got)
	}
	if got := tokens.String(Token(9999)); got != "" {
		t.Fatalf("unknown token String = %q, want empty", got)
	}
}

func TestTable_Join(t *testing.T) {
	tokens := NewTable()

	tests := []struct {
		a, b string
		want string
	}{
		{"ipv4", "src", "ipv4.src"},
		{"ipv4", ".src", "ipv4.src"},
		{"", "src", "src"},
		{"ipv4", "", "ipv4"},
		{"ipv4.flags", "df", "ipv4.flags.df"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := tokens.Join(tokens.Literal(tt.a), tokens.Literal(tt.b))
			if tokens.String(got) != tt.want {
				t.Errorf("Join(%q, %q) = %q, want %q", tt.a, tt.b, tokens.String(got), tt.want)
			}
			if got != tokens.Literal(tt.want) {
				t.Errorf("Join result is not interned under %q", tt.want)
			}
		})
	}
}

func TestTable_Concurrent(t *testing.T) {
	tokens := NewTable()
	names := []string{"eth", "ipv4", "udp", "tcp", "http"}

	var wg sync.WaitGroup
	results := make([][]Token, 8)
	for g := range results {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for _, n := range names {
				results[g] = append(results[g], tokens.Literal(n))
			}
		}(g)
	}
	wg.Wait()

	for g := 1; g < len(results); g++ {
		for i := range names {
			if results[g][i] != results[0][i] {
				t.Fatalf("goroutine %d got token %d for %q, want %d", g, results[g][i], names[i], results[0][i])
			}
		}
	}
	if tokens.Len() != len(names)+1 {
		t.Fatalf("Len = %d, want %d", tokens.Len(), len(names)+1)
	}
}

func TestDefault(t *testing.T) {
	if Default() != Default() {
		t.Fatal("Default must return the same table")
	}
	tok := Default().Literal("token-default-test")
	if Default().String(tok) != "token-default-test" {
		t.Fatal("Default table lost a name")
	}
}
