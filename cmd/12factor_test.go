package cmd

import (
	"reflect"
	"testing"

	"github.com/relloyd/batchetl/constants"
)

func TestSetupTwelveFactorMode(t *testing.T) {
	t.Setenv(constants.EnvVarTwelveFactorMode, "")
	setupTwelveFactorMode()
	if twelveFactorMode || lambdaMode {
		t.Fatal("expected twelveFactorMode and lambdaMode to be false")
	}
	t.Setenv(constants.EnvVarTwelveFactorMode, "1")
	setupTwelveFactorMode()
	if !twelveFactorMode || lambdaMode {
		t.Fatal("expected twelveFactorMode to be true and lambdaMode false")
	}
	t.Setenv(constants.EnvVarTwelveFactorMode, "Lambda")
	setupTwelveFactorMode()
	if !twelveFactorMode || !lambdaMode {
		t.Fatal("expected twelveFactorMode and lambdaMode to be true")
	}
	t.Setenv(constants.EnvVarTwelveFactorMode, "")
	setupTwelveFactorMode()
}

func TestTwelveFactorArgs(t *testing.T) {
	defer func() { lambdaMode = false }()
	cases := []struct {
		command string
		lambda  bool
		want    []string
	}{
		{"", false, []string{"run"}},
		{"", true, []string{"lambda"}},
		{"backfill", false, []string{"backfill"}},
		{" config show ", true, []string{"config", "show"}},
	}
	for _, c := range cases {
		t.Setenv(envVarCommand, c.command)
		lambdaMode = c.lambda
		if got := twelveFactorArgs(); !reflect.DeepEqual(got, c.want) {
			t.Fatalf("command %q lambda %v: expected %v; got %v", c.command, c.lambda, c.want, got)
		}
	}
}

func TestRootCommandsRegistered(t *testing.T) {
	for _, name := range []string{"run", "backfill", "serve", "schedule", "config", "lambda", "version", "12f"} {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected command %q to be registered", name)
		}
	}
}
