package kmain

import "testing"

func TestParseCmdLine(t *testing.T) {
	specs := []struct {
		cmdLine string
		exp     Config
		expErr  error
	}{
		{"", DefaultConfig(), nil},
		{"sched=off", Config{Shell: "shell"}, nil},
		{"shell=sh fg=2 quiet verbose", Config{Shell: "sh", Scheduling: true, Foreground: 2, Quiet: true, Verbose: true}, nil},
		{"  sched=on   unknown=1 flag ", DefaultConfig(), nil},
		{"sched=maybe", Config{}, errBadSchedValue},
		{"fg=3", Config{}, errBadForeground},
		{"fg=-1", Config{}, errBadForeground},
		{"fg=x", Config{}, errBadForeground},
		{"shell=", Config{}, errEmptyShell},
		{"shell", Config{}, errEmptyShell},
	}

	for specIndex, spec := range specs {
		cfg, err := ParseCmdLine(spec.cmdLine)
		if spec.expErr != nil {
			if err != spec.expErr {
				t.Errorf("[spec %d] expected error %v; got %v", specIndex, spec.expErr, err)
			}
			continue
		}

		if err != nil {
			t.Errorf("[spec %d] unexpected error: %v", specIndex, err)
			continue
		}

		if cfg != spec.exp {
			t.Errorf("[spec %d] expected %+v; got %+v", specIndex, spec.exp, cfg)
		}
	}
}
