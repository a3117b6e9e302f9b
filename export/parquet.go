package export

import (
	"time"

	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	endureio "github.com/PySport/EndureIO"
)

// activityParquetRow is the canonical fixed-schema projection of a
// sample. Missing numeric values are encoded as NaN, a missing lap as -1.
type activityParquetRow struct {
	Timestamp       string  `parquet:"name=timestamp, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Sport           string  `parquet:"name=sport, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	SubSport        string  `parquet:"name=sub_sport, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Power           float64 `parquet:"name=power, type=DOUBLE"`
	Speed           float64 `parquet:"name=speed, type=DOUBLE"`
	Distance        float64 `parquet:"name=distance, type=DOUBLE"`
	Latitude        float64 `parquet:"name=latitude, type=DOUBLE"`
	Longitude       float64 `parquet:"name=longitude, type=DOUBLE"`
	Altitude        float64 `parquet:"name=altitude, type=DOUBLE"`
	HeartRate       float64 `parquet:"name=heart_rate, type=DOUBLE"`
	Cadence         float64 `parquet:"name=cadence, type=DOUBLE"`
	Temperature     float64 `parquet:"name=temperature, type=DOUBLE"`
	CoreTemperature float64 `parquet:"name=core_temperature, type=DOUBLE"`
	SMO2            float64 `parquet:"name=smo2, type=DOUBLE"`
	Lap             int64   `parquet:"name=lap, type=INT64"`
	LapTrigger      string  `parquet:"name=lap_trigger, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	DurationS       float64 `parquet:"name=duration_s, type=DOUBLE"`
}

// MarshalParquet renders the table's canonical columns as Parquet bytes.
func MarshalParquet(table *endureio.Table) ([]byte, error) {
	fw := parquetbuffer.NewBufferFile()
	if err := writeParquet(fw, table); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return append([]byte(nil), fw.Bytes()...), nil
}

// WriteParquetFile writes the canonical Parquet projection to path.
func WriteParquetFile(path string, table *endureio.Table) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	if err := writeParquet(fw, table); err != nil {
		_ = fw.Close()
		return err
	}
	return fw.Close()
}

func writeParquet(fw source.ParquetFile, table *endureio.Table) error {
	pw, err := writer.NewParquetWriter(fw, new(activityParquetRow), 4)
	if err != nil {
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for i := range table.Rows {
		if err := pw.Write(projectRow(&table.Rows[i])); err != nil {
			_ = pw.WriteStop()
			return err
		}
	}
	return pw.WriteStop()
}

func projectRow(sample *endureio.Sample) activityParquetRow {
	row := activityParquetRow{
		Timestamp:       sample.Timestamp.Format(time.RFC3339),
		Sport:           stringOr(sample.Values["sport"]),
		SubSport:        stringOr(sample.Values["sub_sport"]),
		Power:           floatOrNaN(sample.Values["power"]),
		Speed:           floatOrNaN(sample.Values["speed"]),
		Distance:        floatOrNaN(sample.Values["distance"]),
		Latitude:        floatOrNaN(sample.Values["latitude"]),
		Longitude:       floatOrNaN(sample.Values["longitude"]),
		Altitude:        floatOrNaN(sample.Values["altitude"]),
		HeartRate:       floatOrNaN(sample.Values["heart_rate"]),
		Cadence:         floatOrNaN(sample.Values["cadence"]),
		Temperature:     floatOrNaN(sample.Values["temperature"]),
		CoreTemperature: floatOrNaN(sample.Values["core_temperature"]),
		SMO2:            floatOrNaN(sample.Values["smo2"]),
		Lap:             -1,
		DurationS:       0,
	}
	if sample.Lap != nil {
		row.Lap = int64(*sample.Lap)
	}
	if sample.LapTrigger != nil {
		row.LapTrigger = *sample.LapTrigger
	}
	if sample.Duration != nil {
		row.DurationS = sample.Duration.Seconds()
	}
	return row
}
