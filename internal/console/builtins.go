package console

import (
	"errors"
	"strings"

	"github.com/okhmanyuk-ev/customized-xash3d/internal/config"
	"github.com/okhmanyuk-ev/customized-xash3d/internal/host"
)

var errUsage = errors.New("wrong number of arguments")

func registerBuiltins(c *Console) {
	c.Register("set", "set <variable> <value>", cmdSet)
	c.Register("get", "get <variable>", cmdGet)
	c.Register("cvarlist", "cvarlist", cmdCvarList)
	c.Register("host_error", "host_error [message]", cmdHostError)
	c.Register("quit", "quit", cmdQuit)
	c.Register("status", "status", cmdStatus)
	c.Register("echo", "echo [text]", cmdEcho)
}

func cmdSet(c *Console, _ *host.Frame, args []string) error {
	if len(args) != 3 {
		return errUsage
	}
	if err := c.vars.Set(args[1], args[2]); err != nil {
		return err
	}
	c.logger.Info("variable changed", "name", args[1], "value", args[2])
	return nil
}

func cmdGet(c *Console, _ *host.Frame, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	v, err := c.vars.Get(args[1])
	if err != nil {
		return err
	}
	c.Printf("%s = %s\n", args[1], v)
	return nil
}

func cmdCvarList(c *Console, _ *host.Frame, _ []string) error {
	for _, name := range config.VarNames() {
		v, _ := c.vars.Get(name)
		c.Printf("%-16s %s\n", name, v)
	}
	return nil
}

// cmdHostError raises a fault on purpose, for testing recovery.
func cmdHostError(_ *Console, f *host.Frame, args []string) error {
	msg := "host_error"
	if len(args) > 1 {
		msg = strings.Join(args[1:], " ")
	}
	f.Fault(msg)
	return nil
}

func cmdQuit(_ *Console, f *host.Frame, _ []string) error {
	f.Shutdown()
	return nil
}

func cmdStatus(c *Console, f *host.Frame, _ []string) error {
	settings := f.Settings()
	fps := host.TargetFPS(host.PolicyFor(settings, f.Mode()))
	c.Printf("frame:    %d\n", f.Count())
	c.Printf("status:   %s\n", f.Status())
	c.Printf("target:   %g fps\n", fps)
	c.Printf("realtime: %.3f\n", f.RealTime())
	c.Printf("frametime: %.4f\n", f.Time())
	return nil
}

func cmdEcho(c *Console, _ *host.Frame, args []string) error {
	c.Printf("%s\n", strings.Join(args[1:], " "))
	return nil
}
