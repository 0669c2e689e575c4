package backtest

import (
	"math"
	"time"
)

// CalculateStats는 거래 목록과 자산 이력으로 백테스트 통계를 계산합니다
func CalculateStats(trades []Trade, account *Account) *Result {
	result := &Result{
		TotalTrades:    len(trades),
		Trades:         trades,
		MonthlyReturns: make(map[string]float64),
		EquityCurve:    account.EquityHistory,
		FinalBalance:   account.Balance,
	}
	if n := len(account.EquityHistory); n > 0 {
		result.StartTime = account.EquityHistory[0].Timestamp
		result.EndTime = account.EquityHistory[n-1].Timestamp
	}

	result.CumulativeReturn = (account.Balance - account.InitialBalance) / account.InitialBalance * 100
	result.AnnualizedReturn = CalculateAnnualizedReturn(account.InitialBalance, account.Balance, result.StartTime, result.EndTime) * 100
	result.MaxDrawdown, result.AvgDrawdown, _ = CalculateDrawdownStats(account.EquityHistory)

	if len(trades) == 0 {
		return result
	}

	totalProfit := 0.0
	totalLoss := 0.0
	holdingDays := 0

	// 연속 승/패 계산 변수
	currentConsecutiveWins := 0
	currentConsecutiveLosses := 0

	for _, trade := range trades {
		if trade.ProfitPct > 0 {
			result.WinningTrades++
			totalProfit += trade.ProfitPct

			currentConsecutiveWins++
			currentConsecutiveLosses = 0
			if currentConsecutiveWins > result.MaxConsecutiveWins {
				result.MaxConsecutiveWins = currentConsecutiveWins
			}
		} else if trade.ProfitPct < 0 {
			result.LosingTrades++
			totalLoss += math.Abs(trade.ProfitPct)

			currentConsecutiveLosses++
			currentConsecutiveWins = 0
			if currentConsecutiveLosses > result.MaxConsecutiveLosses {
				result.MaxConsecutiveLosses = currentConsecutiveLosses
			}
		}

		holdingDays += trade.HoldingDays
		result.MonthlyReturns[trade.ExitTime.Format("2006-01")] += trade.ProfitPct
	}

	result.WinRate = float64(result.WinningTrades) / float64(len(trades)) * 100
	result.AverageReturn = (totalProfit - totalLoss) / float64(len(trades))
	result.AvgHoldingDays = float64(holdingDays) / float64(len(trades))

	// 프로핏 팩터 계산
	if totalLoss > 0 {
		result.ProfitFactor = totalProfit / totalLoss
	} else {
		result.ProfitFactor = totalProfit // 손실이 없는 경우
	}

	if result.WinningTrades > 0 {
		result.AvgWinAmount = totalProfit / float64(result.WinningTrades)
	}
	if result.LosingTrades > 0 {
		result.AvgLossAmount = totalLoss / float64(result.LosingTrades)
	}

	return result
}

// CalculateDrawdownStats는 자산 이력에서 낙폭 통계를 계산합니다
func CalculateDrawdownStats(equityHistory []EquityPoint) (maxDrawdown float64, avgDrawdown float64, drawdownDuration time.Duration) {
	if len(equityHistory) == 0 {
		return 0, 0, 0
	}

	highWaterMark := equityHistory[0].Equity
	totalDrawdown := 0.0
	drawdownCount := 0

	drawdownStart := time.Time{}
	inDrawdown := false

	for _, point := range equityHistory {
		// 신규 최고점 갱신
		if point.Equity > highWaterMark {
			highWaterMark = point.Equity

			// 낙폭 종료
			if inDrawdown {
				inDrawdown = false
				if d := point.Timestamp.Sub(drawdownStart); d > drawdownDuration {
					drawdownDuration = d
				}
			}
		}

		if highWaterMark <= 0 {
			continue
		}
		current := (highWaterMark - point.Equity) / highWaterMark * 100
		if current > 0 && !inDrawdown {
			inDrawdown = true
			drawdownStart = point.Timestamp
		}
		if current > maxDrawdown {
			maxDrawdown = current
		}
		if current > 0 {
			totalDrawdown += current
			drawdownCount++
		}
	}

	// 끝까지 회복하지 못한 낙폭
	if inDrawdown {
		if d := equityHistory[len(equityHistory)-1].Timestamp.Sub(drawdownStart); d > drawdownDuration {
			drawdownDuration = d
		}
	}

	if drawdownCount > 0 {
		avgDrawdown = totalDrawdown / float64(drawdownCount)
	}
	return maxDrawdown, avgDrawdown, drawdownDuration
}

// CalculateAnnualizedReturn은 연율화 수익률을 계산합니다
func CalculateAnnualizedReturn(startEquity, endEquity float64, startTime, endTime time.Time) float64 {
	if startEquity <= 0 {
		return 0
	}
	totalReturn := (endEquity - startEquity) / startEquity

	// 거래 기간 (연 단위)
	yearDiff := float64(endTime.Sub(startTime)) / float64(365*24*time.Hour)

	// (1 + totalReturn)^(1/yearDiff) - 1
	if yearDiff >= 1 {
		return math.Pow(1+totalReturn, 1/yearDiff) - 1
	}
	return totalReturn // 1년 미만인 경우
}
