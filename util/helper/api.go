package helper_util

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

const maxPageLimit = 1000

func GetPaginationParams(c *gin.Context) (limit int, offset int, err error) {
	limit, err = strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil {
		return 0, 0, err
	}
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		return 0, 0, err
	}
	if limit <= 0 || limit > maxPageLimit || offset < 0 {
		return 0, 0, fmt.Errorf("limit must be in [1, %d] and offset non-negative", maxPageLimit)
	}
	return limit, offset, nil
}
