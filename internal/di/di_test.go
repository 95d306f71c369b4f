package di

import "testing"

type greeter struct{ name string }

func TestRegisterTokenIsLazyAndSingleton(t *testing.T) {
	c := NewContainer()
	c.Register("name", "bond")

	calls := 0
	tok := NewToken[*greeter]("test.greeter")
	RegisterToken(c, tok, func(sr ServiceRegistry) *greeter {
		calls++
		return &greeter{name: sr.Get("name").(string)}
	})

	if calls != 0 {
		t.Fatalf("factory ran before first Get")
	}

	a := GetToken(c, tok)
	b := GetToken(c, tok)
	if a != b {
		t.Error("expected the same instance")
	}
	if calls != 1 {
		t.Errorf("factory calls = %d, want 1", calls)
	}
	if a.name != "bond" {
		t.Errorf("name = %q", a.name)
	}
}

func TestGetMissingPanics(t *testing.T) {
	c := NewContainer()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	c.Get("missing")
}

func TestGetTokenWrongTypePanics(t *testing.T) {
	c := NewContainer()
	c.Register("x", 42)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	GetToken(c, NewToken[string]("x"))
}
