/*
Package adapter wires a configuration to a mount.

New validates a config.Configuration, converts its mount section into
fuse2 mount options, builds the structured logger (with file rotation when
global.log_file is set) and the Prometheus collector. Run then serves the
metrics endpoint, mounts the file system through fuse2.Mounter and blocks
until it is unmounted:

	cfg := config.NewDefault()
	cfg.Mount.MountPoint = "/mnt/hello"
	a, err := adapter.New(cfg, hellofs.New("", ""))
	if err != nil {
		return err
	}
	defer a.Close()
	return a.Run(ctx)

An Adapter runs at most one mount at a time; a second concurrent Run
fails with ALREADY_STARTED.
*/
package adapter
