package cli

import (
	"fmt"
	"io"
	"strings"
)

// completionFlag describes one command-line flag for completion scripts.
type completionFlag struct {
	name   string // long name, without dashes
	short  string // one-letter alias, empty if none
	desc   string
	values []string // suggested values; nil for switches
	file   bool     // completes file names
	arg    bool     // takes an argument
}

var completionFlags = []completionFlag{
	{name: "help", short: "h", desc: "Show help message"},
	{name: "version", short: "V", desc: "Show version information"},
	{name: "n", desc: "Comma-separated integers to factor", arg: true},
	{name: "timeout", desc: "Maximum execution time", values: []string{"1m", "5m", "10m", "30m", "1h"}, arg: true},
	{name: "workers", desc: "Sieve goroutines per factorization", values: []string{"1", "2", "4", "8"}, arg: true},
	{name: "fb-primes", desc: "Factor base size", arg: true},
	{name: "small-primes", desc: "Unsieved leading primes", arg: true},
	{name: "sieve-size", desc: "Sieve length", arg: true},
	{name: "extra-rels", desc: "Relations beyond the factor base size", arg: true},
	{name: "lp-mult", desc: "Large prime bound multiplier", values: []string{"16", "32", "64"}, arg: true},
	{name: "max-attempts", desc: "Sieve attempts per composite", arg: true},
	{name: "max-bits", desc: "Largest accepted input in bits", arg: true},
	{name: "full", desc: "Split inputs into prime factors"},
	{name: "details", short: "d", desc: "Show sieve statistics"},
	{name: "log-level", desc: "Log level", values: []string{"debug", "info", "warn", "error"}, arg: true},
	{name: "calibrate", desc: "Re-derive the tuning table"},
	{name: "calibration-profile", desc: "Calibration profile file", file: true, arg: true},
	{name: "json", desc: "Output in JSON format"},
	{name: "server", desc: "Start HTTP server mode"},
	{name: "port", desc: "Server port", values: []string{"8080", "3000", "5000", "9000"}, arg: true},
	{name: "no-color", desc: "Disable colored output"},
	{name: "output", short: "o", desc: "Output file path", file: true, arg: true},
	{name: "quiet", short: "q", desc: "Quiet mode for scripts"},
	{name: "completion", desc: "Generate completion script", values: []string{"bash", "zsh", "fish", "powershell"}, arg: true},
}

// GenerateCompletion writes a shell completion script for the qsieve flags.
//
// Parameters:
//   - out: The writer to output the completion script.
//   - shell: The shell type ("bash", "zsh", "fish", "powershell").
//
// Returns:
//   - error: An error if the shell is not supported or the write fails.
func GenerateCompletion(out io.Writer, shell string) error {
	var script string
	switch shell {
	case "bash":
		script = bashCompletion()
	case "zsh":
		script = zshCompletion()
	case "fish":
		script = fishCompletion()
	case "powershell", "ps":
		script = powerShellCompletion()
	default:
		return fmt.Errorf("unsupported shell: %s (accepted values: bash, zsh, fish, powershell)", shell)
	}
	_, err := io.WriteString(out, script)
	return err
}

func bashCompletion() string {
	var opts []string
	var cases strings.Builder
	for _, f := range completionFlags {
		opts = append(opts, "--"+f.name)
		pattern := "--" + f.name
		if f.short != "" {
			opts = append(opts, "-"+f.short)
			pattern += "|-" + f.short
		}
		switch {
		case f.file:
			fmt.Fprintf(&cases, "        %s)\n            COMPREPLY=( $(compgen -f -- \"${cur}\") )\n            return 0\n            ;;\n", pattern)
		case len(f.values) > 0:
			fmt.Fprintf(&cases, "        %s)\n            COMPREPLY=( $(compgen -W \"%s\" -- \"${cur}\") )\n            return 0\n            ;;\n",
				pattern, strings.Join(f.values, " "))
		}
	}
	return `# Bash completion script for qsieve
# Add this to your ~/.bashrc or ~/.bash_completion

_qsieve_completions() {
    local cur prev opts
    COMPREPLY=()
    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"
    opts="` + strings.Join(opts, " ") + `"

    case "${prev}" in
` + cases.String() + `    esac

    if [[ "${cur}" == -* ]]; then
        COMPREPLY=( $(compgen -W "${opts}" -- "${cur}") )
        return 0
    fi
}

complete -F _qsieve_completions qsieve
`
}

func zshCompletion() string {
	var b strings.Builder
	b.WriteString("#compdef qsieve\n\n# Zsh completion script for qsieve\n# Place this file in a directory of $fpath\n\n_qsieve() {\n    _arguments -s \\\n")
	for i, f := range completionFlags {
		spec := fmt.Sprintf("'--%s[%s]", f.name, f.desc)
		if f.short != "" {
			spec = fmt.Sprintf("'(-%s --%s)'{-%s,--%s}'[%s]", f.short, f.name, f.short, f.name, f.desc)
		}
		switch {
		case f.file:
			spec += ":file:_files"
		case len(f.values) > 0:
			spec += fmt.Sprintf(":%s:(%s)", f.name, strings.Join(f.values, " "))
		case f.arg:
			spec += ":" + f.name + ":"
		}
		spec += "'"
		if i < len(completionFlags)-1 {
			spec += " \\"
		}
		fmt.Fprintf(&b, "        %s\n", spec)
	}
	b.WriteString("}\n\n_qsieve \"$@\"\n")
	return b.String()
}

func fishCompletion() string {
	var b strings.Builder
	b.WriteString("# Fish completion script for qsieve\n# Add this to ~/.config/fish/completions/qsieve.fish\n\ncomplete -c qsieve -f\n")
	for _, f := range completionFlags {
		line := "complete -c qsieve"
		if f.short != "" {
			line += " -s " + f.short
		}
		line += fmt.Sprintf(" -l %s -d '%s'", f.name, f.desc)
		switch {
		case f.file:
			line += " -rF"
		case len(f.values) > 0:
			line += fmt.Sprintf(" -xa '%s'", strings.Join(f.values, " "))
		case f.arg:
			line += " -x"
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func powerShellCompletion() string {
	var options, values strings.Builder
	for _, f := range completionFlags {
		fmt.Fprintf(&options, "        @{Name = '--%s'; Description = '%s' }\n", f.name, f.desc)
		if f.short != "" {
			fmt.Fprintf(&options, "        @{Name = '-%s'; Description = '%s' }\n", f.short, f.desc)
		}
		if len(f.values) > 0 {
			fmt.Fprintf(&values, "        '--%s' = @('%s')\n", f.name, strings.Join(f.values, "', '"))
		}
	}
	return `# PowerShell completion script for qsieve
# Add this to your $PROFILE

Register-ArgumentCompleter -CommandName 'qsieve' -Native -ScriptBlock {
    param($wordToComplete, $commandAst, $cursorPosition)

    $options = @(
` + options.String() + `    )
    $values = @{
` + values.String() + `    }

    $elements = $commandAst.CommandElements
    $prevElement = if ($elements.Count -gt 2) { $elements[-2].ToString() } else { '' }

    if ($values.ContainsKey($prevElement)) {
        $values[$prevElement] | Where-Object { $_ -like "$wordToComplete*" } | ForEach-Object {
            [System.Management.Automation.CompletionResult]::new($_, $_, 'ParameterValue', $_)
        }
        return
    }

    $options | Where-Object { $_.Name -like "$wordToComplete*" } | ForEach-Object {
        [System.Management.Automation.CompletionResult]::new($_.Name, $_.Name, 'ParameterName', $_.Description)
    }
}
`
}
