package idgen

import (
	"fmt"
	"os"
	"strconv"

	"teamflow/bizerror"

	"github.com/fundwit/go-commons/types"
	"github.com/sony/sonyflake"
)

// NewWorker machine id is taken from IDGEN_MACHINE_ID, then from the private IP address,
// and falls back to 1 on hosts without a private address.
func NewWorker() (*sonyflake.Sonyflake, error) {
	if os.Getenv("IDGEN_MACHINE_ID") == "" {
		if w := sonyflake.NewSonyflake(sonyflake.Settings{}); w != nil {
			return w, nil
		}
	}
	if _, err := machineID(); err != nil {
		return nil, &bizerror.ErrConfiguration{Message: fmt.Sprintf("invalid IDGEN_MACHINE_ID: %v", err)}
	}
	w := sonyflake.NewSonyflake(sonyflake.Settings{MachineID: machineID})
	if w == nil {
		return nil, &bizerror.ErrConfiguration{Message: "id generator can not be initialized"}
	}
	return w, nil
}

func NextID(idWorker *sonyflake.Sonyflake) types.ID {
	id, err := idWorker.NextID()
	if err != nil {
		panic(err)
	}
	return types.ID(id)
}

func machineID() (uint16, error) {
	v := os.Getenv("IDGEN_MACHINE_ID")
	if v == "" {
		return 1, nil
	}
	id, err := strconv.ParseUint(v, 10, 16)
	if err != nil {
		return 0, err
	}
	return uint16(id), nil
}
