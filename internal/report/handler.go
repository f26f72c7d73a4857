package report

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
)

func parseRange(c *fiber.Ctx) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", c.Query("start_date"))
	if err != nil {
		return time.Time{}, time.Time{}, fiber.NewError(fiber.StatusBadRequest, "start_date must be YYYY-MM-DD")
	}
	end, err := time.Parse("2006-01-02", c.Query("end_date"))
	if err != nil {
		return time.Time{}, time.Time{}, fiber.NewError(fiber.StatusBadRequest, "end_date must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fiber.NewError(fiber.StatusBadRequest, "end_date is before start_date")
	}
	return start, end, nil
}

// GET /api/dashboard/stats
func DashboardStatsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stats, err := svc.Dashboard(c.UserContext())
		if err != nil {
			log.Printf("[Report] %v", err)
			return fiber.NewError(fiber.StatusInternalServerError, "Dashboard could not be loaded")
		}
		return c.JSON(stats)
	}
}

// GET /api/reports/sales?start_date=2024-05-01&end_date=2024-05-31
func SalesReportHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start, end, err := parseRange(c)
		if err != nil {
			return err
		}

		r, _, err := svc.Sales(c.UserContext(), start, end)
		if err != nil {
			log.Printf("[Report] %v", err)
			return fiber.NewError(fiber.StatusInternalServerError, "Sales report could not be created")
		}
		return c.JSON(r)
	}
}

// GET /api/reports/sales/export?start_date=&end_date=
func SalesExportHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start, end, err := parseRange(c)
		if err != nil {
			return err
		}

		r, invoices, err := svc.Sales(c.UserContext(), start, end)
		if err != nil {
			log.Printf("[Report] %v", err)
			return fiber.NewError(fiber.StatusInternalServerError, "Sales report could not be created")
		}

		buf, err := BuildSalesWorkbook(r, invoices)
		if err != nil {
			log.Printf("[Report] xlsx: %v", err)
			return fiber.NewError(fiber.StatusInternalServerError, "Export could not be created")
		}

		filename := fmt.Sprintf("sales_%s_%s.xlsx", r.StartDate, r.EndDate)
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, "attachment; filename=\""+filename+"\"")
		return c.Send(buf.Bytes())
	}
}
