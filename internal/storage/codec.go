package storage

import (
	"encoding/json"
	"errors"

	"knapevo/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeRun(run model.RunRecord) ([]byte, error) {
	return json.Marshal(run)
}

func DecodeRun(data []byte) (model.RunRecord, error) {
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}

func EncodeFitnessHistory(history []model.FitnessRecord) ([]byte, error) {
	return json.Marshal(history)
}

func DecodeFitnessHistory(data []byte) ([]model.FitnessRecord, error) {
	var history []model.FitnessRecord
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func EncodeCandidate(candidate model.CandidateRecord) ([]byte, error) {
	return json.Marshal(candidate)
}

func DecodeCandidate(data []byte) (model.CandidateRecord, error) {
	var candidate model.CandidateRecord
	if err := json.Unmarshal(data, &candidate); err != nil {
		return model.CandidateRecord{}, err
	}
	return candidate, nil
}

// StampVersion fills a zero version with the current schema and codec.
func StampVersion(run model.RunRecord) model.RunRecord {
	if run.SchemaVersion == 0 {
		run.SchemaVersion = CurrentSchemaVersion
	}
	if run.CodecVersion == 0 {
		run.CodecVersion = CurrentCodecVersion
	}
	return run
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
