package cli

import "testing"

func TestRunUnknownCommand(t *testing.T) {
	err := Run([]string{"bogus"})
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestRunHelp(t *testing.T) {
	if err := Run([]string{"help"}); err != nil {
		t.Fatalf("help: %v", err)
	}
	if err := Run(nil); err != nil {
		t.Fatalf("no args: %v", err)
	}
}

func TestRunVersion(t *testing.T) {
	if err := Run([]string{"version"}); err != nil {
		t.Fatalf("version: %v", err)
	}
}
