package pointcloud

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// PCDType is the format of a pcd file.
type PCDType int

const (
	// PCDAscii ascii format for pcd.
	PCDAscii PCDType = iota
	// PCDBinary binary format for pcd.
	PCDBinary
)

const pcdCommentChar = "#"

var pcdHeaderFields = []string{"VERSION", "FIELDS", "SIZE", "TYPE", "COUNT", "WIDTH", "HEIGHT", "VIEWPOINT", "POINTS", "DATA"}

// NewFromPCDFile reads the pcd file fn.
func NewFromPCDFile(fn string) (pc *PointCloud, err error) {
	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	pc, err = ReadPCD(f)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read %s", fn)
	}
	return pc, nil
}

// ToPCD writes the cloud as an unorganized x y z pcd. Coordinates are stored
// as float32 in both formats.
func ToPCD(pc *PointCloud, out io.Writer, outputType PCDType) error {
	var data string
	switch outputType {
	case PCDAscii:
		data = "ascii"
	case PCDBinary:
		data = "binary"
	default:
		return errors.Errorf("unsupported pcd type %d", outputType)
	}
	_, err := fmt.Fprintf(out, "VERSION .7\n"+
		"FIELDS x y z\n"+
		"SIZE 4 4 4\n"+
		"TYPE F F F\n"+
		"COUNT 1 1 1\n"+
		"WIDTH %d\n"+
		"HEIGHT 1\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS %d\n"+
		"DATA %s\n",
		pc.Size(), pc.Size(), data)
	if err != nil {
		return err
	}

	buf := make([]byte, 12)
	pc.Iterate(func(_ int, p r3.Vector) bool {
		switch outputType {
		case PCDBinary:
			binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(p.X)))
			binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(p.Y)))
			binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(float32(p.Z)))
			_, err = out.Write(buf)
		default:
			_, err = fmt.Fprintf(out, "%s %s %s\n", formatPCDFloat(p.X), formatPCDFloat(p.Y), formatPCDFloat(p.Z))
		}
		return err == nil
	})
	return err
}

// formatPCDFloat writes the shortest text that reads back as the same float32,
// the precision the header declares.
func formatPCDFloat(v float64) string {
	return strconv.FormatFloat(float64(float32(v)), 'g', -1, 32)
}

// maxPCDPrealloc bounds the capacity reserved from an untrusted POINTS field.
const maxPCDPrealloc = 1 << 20

type pcdHeader struct {
	points uint64
	data   PCDType
}

// ReadPCD reads an x y z pcd written by ToPCD.
func ReadPCD(inRaw io.Reader) (*PointCloud, error) {
	header := pcdHeader{}
	in := bufio.NewReader(inRaw)
	var width, height uint64
	for idx := 0; idx < len(pcdHeaderFields); {
		line, err := in.ReadString('\n')
		if err != nil {
			return nil, errors.Wrapf(err, "error reading header line %d", idx)
		}
		line, _, _ = strings.Cut(line, pcdCommentChar)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name := pcdHeaderFields[idx]
		field, value, _ := strings.Cut(line, " ")
		if field != name {
			return nil, errors.Errorf("line is supposed to start with %s but is %s", name, line)
		}
		switch name {
		case "VERSION":
			if value != ".7" {
				return nil, errors.Errorf("unsupported pcd version %s", value)
			}
		case "FIELDS":
			if value != "x y z" {
				return nil, errors.Errorf("unsupported pcd fields %s", value)
			}
		case "WIDTH":
			if width, err = strconv.ParseUint(value, 10, 64); err != nil {
				return nil, errors.Wrapf(err, "invalid WIDTH field %s", value)
			}
		case "HEIGHT":
			if height, err = strconv.ParseUint(value, 10, 64); err != nil {
				return nil, errors.Wrapf(err, "invalid HEIGHT field %s", value)
			}
		case "POINTS":
			if header.points, err = strconv.ParseUint(value, 10, 64); err != nil {
				return nil, errors.Wrapf(err, "invalid POINTS field %s", value)
			}
			if header.points > math.MaxInt {
				return nil, errors.Errorf("POINTS field %d is too large", header.points)
			}
			if height != 0 && width > math.MaxUint64/height || header.points != width*height {
				return nil, errors.Errorf("POINTS field %d does not match WIDTH*HEIGHT %d", header.points, width*height)
			}
		case "DATA":
			switch value {
			case "ascii":
				header.data = PCDAscii
			case "binary":
				header.data = PCDBinary
			default:
				return nil, errors.Errorf("unsupported pcd data type %s", value)
			}
		}
		idx++
	}

	points := make([]r3.Vector, 0, min(header.points, maxPCDPrealloc))
	if header.data == PCDBinary {
		buf := make([]byte, 12)
		for i := uint64(0); i < header.points; i++ {
			if _, err := io.ReadFull(in, buf); err != nil {
				return nil, errors.Wrapf(err, "reading point %d", i)
			}
			points = append(points, r3.Vector{
				X: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf))),
				Y: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[4:]))),
				Z: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[8:]))),
			})
		}
		return NewFromPoints(points), nil
	}
	for i := uint64(0); i < header.points; i++ {
		line, err := in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return nil, errors.Wrapf(err, "reading point %d", i)
		}
		tokens := strings.Fields(line)
		if len(tokens) != 3 {
			return nil, errors.Errorf("unexpected number of fields in point %d", i)
		}
		var xyz [3]float64
		for j, token := range tokens {
			if xyz[j], err = strconv.ParseFloat(token, 32); err != nil {
				return nil, errors.Wrapf(err, "invalid point %d field %s", i, token)
			}
		}
		points = append(points, r3.Vector{X: xyz[0], Y: xyz[1], Z: xyz[2]})
	}
	return NewFromPoints(points), nil
}
