// Package options contains the program options.
package options

// Global contains options shared by all commands.
type Global struct {
	ROM    string `flag:"rom" usage:"cartridge image file"`
	Config string `flag:"config" usage:"YAML configuration file"`
	Debug  bool   `flag:"debug" usage:"enable debug logging"`
	Quiet  bool   `flag:"quiet" usage:"perform operations quietly"`
}

// Insert contains options of the insert command.
type Insert struct {
	Level    uint16 `flag:"level" usage:"level number to insert into (hex)"`
	File     string `arg:"positional" usage:"YAML level description"`
	DryRun   bool   `flag:"dry-run" usage:"encode and verify without writing the image"`
	NoBackup bool   `flag:"no-backup" usage:"do not back up the image before writing"`
}

// Remove contains options of the remove command.
type Remove struct {
	Level    uint16 `flag:"level" usage:"level number to remove (hex)"`
	NoBackup bool   `flag:"no-backup" usage:"do not back up the image before writing"`
}

// Free contains options of the free command.
type Free struct {
	Size  int  `flag:"size" usage:"number of bytes to find"`
	Align uint `flag:"align" usage:"number of low address bits that must be zero"`
}

// Extract contains options of the extract command.
type Extract struct {
	Format  string `flag:"format" usage:"compression format: lz2, lz3" default:"lz2"`
	Output  string `flag:"output" usage:"directory to write the decompressed streams to"`
	Offsets []int  `arg:"positional" usage:"PC offsets of the compressed streams"`
}

// Restore contains options of the restore command.
type Restore struct {
	Backup string `arg:"positional" usage:"backup file to restore"`
}
