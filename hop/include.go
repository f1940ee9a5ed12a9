package hop

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

func builtinInclude(c *Context) error {
	arg, err := c.PopArgOf("include", KindString)
	if err != nil {
		return err
	}
	path, err := c.resolveInclude(arg.Str())
	if err != nil {
		return err
	}
	return c.Include(path)
}

// resolveInclude finds an included file next to the file that contains the
// include call, then along the configured include paths.
func (c *Context) resolveInclude(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", c.Errorf(ErrInclude, "include: file name must be non-empty")
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed), nil
	}

	dirs := make([]string, 0, len(c.engine.config.IncludePaths)+1)
	dirs = append(dirs, c.segmentAt(c.ip).dir)
	dirs = append(dirs, c.engine.config.IncludePaths...)
	for _, dir := range dirs {
		candidate := filepath.Join(dir, trimmed)
		info, err := os.Stat(candidate)
		if err == nil && info.Mode().IsRegular() {
			abs, err := filepath.Abs(candidate)
			if err != nil {
				return "", c.Errorf(ErrInclude, "include: resolve %s: %v", candidate, err)
			}
			return abs, nil
		}
	}
	return "", c.Errorf(ErrInclude, "include: cannot find %q", name)
}

// Include lexes and fully runs the file at path as an independent context,
// then merges its variables, natives and tokens into c. Merged variables
// and natives replace existing bindings of the same name; labels already
// known to c keep their position.
func (c *Context) Include(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return c.Errorf(ErrInclude, "include: resolve %s: %v", path, err)
	}
	if cycle, ok := includeCycle(c.includeChain, abs); ok {
		return c.Errorf(ErrInclude, "include cycle detected: %s", formatIncludeCycle(cycle))
	}
	if len(c.includeChain) >= c.engine.config.MaxIncludeDepth {
		return c.Errorf(ErrInclude, "include depth exceeded (limit %d)", c.engine.config.MaxIncludeDepth)
	}

	child, err := c.engine.LoadFile(abs)
	if err != nil {
		var lexErr *RuntimeError
		if errors.As(err, &lexErr) {
			return err
		}
		return c.Errorf(ErrInclude, "include: %v", err)
	}
	child.includeChain = append(slices.Clone(c.includeChain), abs)
	child.natives = c.natives.Clone()

	c.logger.Debug("include", "file", abs, "tokens", len(child.tokens), "depth", len(child.includeChain))
	if err := child.Run(c.runCtx); err != nil {
		return err
	}
	c.merge(child)
	return nil
}

func (c *Context) merge(child *Context) {
	for _, v := range child.scope.Variables() {
		if c.scope.Bind(v) {
			c.logger.Debug("include replaced variable", "name", v.Name, "from", child.name)
		}
	}
	if added := c.natives.Merge(child.natives); len(added) > 0 {
		c.logger.Debug("include added natives", "names", added, "from", child.name)
	}
	for idx, seg := range child.segments {
		tokens := child.tokens[seg.start:child.segmentEnd(idx)]
		c.appendSegment(tokens, seg.name, seg.source, seg.dir)
	}
}

func includeCycle(chain []string, next string) ([]string, bool) {
	for idx, path := range chain {
		if path == next {
			cycle := append(slices.Clone(chain[idx:]), next)
			return cycle, true
		}
	}
	return nil, false
}

func formatIncludeCycle(cycle []string) string {
	parts := make([]string, len(cycle))
	for idx, path := range cycle {
		parts[idx] = filepath.Base(path)
	}
	return strings.Join(parts, " -> ")
}
