package cmd

import "github.com/spf13/pflag"

type outputType int

const (
	tableOut outputType = iota
	jsonOut
)

const (
	outputFlag   = "output"
	cpusFlag     = "cpus"
	imageFlag    = "image"
	cacheDirFlag = "cache-dir"
)

type xv6goOpts struct {
	outType  outputType
	cacheDir string
}

func init() {
	bootCmd.Flags().IntP(cpusFlag, "c", 0, "Number of simulated CPUs to schedule across (0 probes the host via hostprofile).")
	bootCmd.Flags().String(imageFlag, "", "Path to a bootstrap image file to map at process 0 (default: a small built-in demo image).")
	bootCmd.Flags().String(cacheDirFlag, "", "Directory the resulting snapshot is written to (default: xdg cache dir).")

	psCmd.Flags().StringP(outputFlag, "o", "table", "Output type for command [table (default), json].")
	psCmd.Flags().String(cacheDirFlag, "", "Directory to read the snapshot from (default: xdg cache dir).")

	treeCmd.Flags().StringP(outputFlag, "o", "table", "Output type for command [table (default), json].")
	treeCmd.Flags().String(cacheDirFlag, "", "Directory to read the snapshot from (default: xdg cache dir).")

	inspectCmd.Flags().String(cacheDirFlag, "", "Directory to read the snapshot from (default: xdg cache dir).")

	snapshotClearCmd.Flags().String(cacheDirFlag, "", "Directory to clear (default: xdg cache dir).")

	dashboardCmd.Flags().IntP(cpusFlag, "c", 0, "Number of simulated CPUs to schedule across (0 probes the host via hostprofile).")
}

func newOpts(fs *pflag.FlagSet) xv6goOpts {
	dir, _ := fs.GetString(cacheDirFlag)
	return xv6goOpts{
		outType:  resolveOutputType(fs),
		cacheDir: dir,
	}
}

func resolveOutputType(fs *pflag.FlagSet) outputType {
	of, err := fs.GetString(outputFlag)
	if err != nil {
		return tableOut
	}
	switch of {
	case "json":
		return jsonOut
	default:
		return tableOut
	}
}
