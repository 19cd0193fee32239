// Package datasource turns a pipeline's source section into independent
// inputs. Each input is read, transformed and written on its own and keeps
// its own trained-state namespace.
package datasource

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"etlops/internal/config"
	"etlops/internal/datasource/file"
	"etlops/internal/datasource/httpds"
)

// Source opens the bytes of one input.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Input is one resolved input.
type Input struct {
	// Name identifies the input in logs, output file names and trained-state
	// keys. Names are unique within one Resolve result.
	Name string
	// Location is the path or URL.
	Location string
	Source   Source
}

// Resolve expands src into inputs in configuration order.
func Resolve(src config.Source, log *slog.Logger) ([]Input, error) {
	var inputs []Input
	switch src.Kind {
	case "file":
		paths, err := file.Expand(src.File)
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			l := file.NewLocal(p)
			inputs = append(inputs, Input{Name: l.Name(), Location: p, Source: l})
		}
	case "http":
		if len(src.HTTP.URLs) == 0 {
			return nil, fmt.Errorf("http source has no urls")
		}
		hdr := http.Header{}
		for k, v := range src.HTTP.Headers {
			hdr.Set(k, v)
		}
		client := httpds.NewClient(httpds.Config{
			Timeout:            time.Duration(src.HTTP.TimeoutSeconds) * time.Second,
			MaxRetries:         src.HTTP.MaxRetries,
			InsecureSkipVerify: src.HTTP.InsecureSkipVerify,
			Logger:             log,
		})
		for _, u := range src.HTTP.URLs {
			inputs = append(inputs, Input{Name: httpds.InputName(u), Location: u, Source: httpds.NewRemote(client, u, hdr)})
		}
	default:
		return nil, fmt.Errorf("unknown source kind %q", src.Kind)
	}
	uniqueNames(inputs)
	return inputs, nil
}

// uniqueNames suffixes repeated names with _2, _3, ... so two inputs such
// as a/data.csv and b/data.csv never share outputs or trained-state.
func uniqueNames(inputs []Input) {
	seen := make(map[string]int, len(inputs))
	for i := range inputs {
		n := inputs[i].Name
		seen[n]++
		if c := seen[n]; c > 1 {
			candidate := fmt.Sprintf("%s_%d", n, c)
			for seen[candidate] > 0 {
				c++
				candidate = fmt.Sprintf("%s_%d", n, c)
			}
			seen[n] = c
			seen[candidate] = 1
			inputs[i].Name = candidate
		}
	}
}
