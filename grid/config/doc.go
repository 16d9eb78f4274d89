// Package config loads road grid configurations from a directory.
//
// A configuration is a .json, .yaml or .yml file naming the surface the grid
// covers, the spacing between points, the piece scale, one piece for each of
// the 15 non-empty connection sets and the two bridge fillers. Files are
// decoded with engine.DecodeGridConfig and must pass
// engine.ValidateGridConfig before they are cached.
//
// Configs are addressed by ID, the file name without its extension, so
// "compact" and "compact.yaml" refer to the same file. The default is
// default.* when present, otherwise the first valid file by ID, otherwise
// engine.DefaultGridConfig.
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//	grid, err := manager.LoadConfig("compact")
package config
